package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"wg-access-bot/internal/errors"
	"wg-access-bot/internal/storage"
)

const usage = "Usage: tokenctl [generate <balance>|add <token> <amount>|remove <token> <amount>|update <token> <balance>|list]"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	dbURL := os.Getenv("WG_DATABASE_URL")
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "WG_DATABASE_URL is required")
		return 1
	}

	db, err := storage.Connect(dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer db.Close()

	if err := storage.EnsureSchema(db); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare schema: %v\n", err)
		return 1
	}

	tokens := storage.NewTokenRepository(db)
	ctx := context.Background()

	switch args[0] {
	case "list":
		records, err := tokens.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list tokens: %v\n", err)
			return 1
		}
		for _, record := range records {
			fmt.Printf("%d\t%s\t%d\t%s\n", record.ID, record.Token, record.Balance,
				record.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return 0

	case "generate":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, usage)
			return 1
		}
		balance, ok := parseBalance(args[1])
		if !ok {
			fmt.Fprintln(os.Stderr, "Balance must be a non-negative number")
			return 1
		}
		token, err := tokens.Generate(ctx, balance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
			return 1
		}
		fmt.Println(token.Token)
		return 0

	case "add", "remove", "update":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, usage)
			return 1
		}
		amount, ok := parseBalance(args[2])
		if !ok {
			fmt.Fprintln(os.Stderr, "Balance must be a non-negative number")
			return 1
		}

		token := args[1]
		switch args[0] {
		case "add":
			balance, err := tokens.AdjustBalance(ctx, token, amount)
			if err != nil {
				return reportTokenError(err, token)
			}
			fmt.Printf("Balance of %s is now %d\n", token, balance)
		case "remove":
			balance, err := tokens.AdjustBalance(ctx, token, -amount)
			if err != nil {
				return reportTokenError(err, token)
			}
			fmt.Printf("Balance of %s is now %d\n", token, balance)
		case "update":
			if err := tokens.SetBalance(ctx, token, amount); err != nil {
				return reportTokenError(err, token)
			}
			fmt.Printf("Balance of %s is now %d\n", token, amount)
		}
		return 0

	default:
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}
}

func reportTokenError(err error, token string) int {
	if errors.IsNotFound(err) {
		fmt.Fprintf(os.Stderr, "Token %s not found\n", token)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Operation failed: %v\n", err)
	return 1
}

// parseBalance parses a non-negative integer amount
func parseBalance(raw string) (int64, bool) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
