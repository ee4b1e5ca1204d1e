package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/arawak/thankyou/migrations"
)

var version = "dev"

func main() {
	fmt.Printf("thankyou-migrate version %s\n", version)
	_ = godotenv.Load()

	dsn := os.Getenv("THANKYOU_DB_DSN")
	if dsn == "" {
		fmt.Println("THANKYOU_DB_DSN is required")
		os.Exit(1)
	}
	dir := flag.String("dir", "up", "migration direction: up, down or status")
	flag.Parse()

	var err error
	switch *dir {
	case "up":
		err = migrations.Up(dsn)
	case "down":
		err = migrations.Down(dsn)
	case "status":
		err = printStatus(dsn)
	default:
		err = fmt.Errorf("unknown direction: %s", *dir)
	}
	if err != nil {
		fmt.Println("migration error:", err)
		os.Exit(1)
	}
}

func printStatus(dsn string) error {
	applied, dirty, err := migrations.Status(dsn)
	if err != nil {
		return err
	}
	latest, err := migrations.Latest()
	if err != nil {
		return err
	}
	fmt.Printf("catalog schema version %d of %d", applied, latest)
	if dirty {
		fmt.Print(" (dirty)")
	}
	fmt.Println()
	return nil
}
