package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

var tables = []string{"agent_checkpoints", "tick_summaries"}

func main() {
	var dsn, out string
	flag.StringVar(&dsn, "dsn", os.Getenv("TILEWORLD_DB_DSN"), "postgres dsn")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/model", "output dir for generated models")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or TILEWORLD_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:       out,
		ModelPkgPath:  "model",
		Mode:          gen.WithoutContext,
		FieldNullable: false,
	})
	g.UseDB(db)
	g.WithDataTypeMap(map[string]func(gorm.ColumnType) string{
		"jsonb": func(gorm.ColumnType) string { return "[]byte" },
	})
	for _, table := range tables {
		g.GenerateModel(table)
	}
	g.Execute()

	fmt.Printf("generated gorm models for %v at %s\n", tables, out)
}
