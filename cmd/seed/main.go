package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"aireporter/internal/app"
	"aireporter/internal/config"
	"aireporter/internal/seed"
	"aireporter/internal/service/generation"
)

func main() {
	// Parse command-line flags
	clearData := flag.Bool("clear-data", false, "Delete every project before seeding")
	generate := flag.Bool("generate", false, "Generate the demo report offline (saves lorem-fast as the model in settings)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *clearData {
		log.Fatalf("BLOCKED: Cannot run --clear-data in production environment")
	}

	logger := config.NewLogger(cfg, nil)
	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close(ctx)

	seeder := seed.NewSeeder(application.Reports, application.Images, logger)

	if *clearData {
		if err := seeder.Clear(ctx); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
	}

	res, err := seeder.SeedDemo(ctx)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	log.Printf("Seeded %s > %s > %s (report %s)", seed.ProjectName, seed.FolderName, seed.ReportName, res.Report.ID)

	if *generate {
		settings, err := application.Settings.Get(ctx)
		if err != nil {
			log.Fatalf("Failed to read settings: %v", err)
		}
		if settings.Model != "lorem-fast" {
			settings.Model = "lorem-fast"
			if _, err := application.Settings.Save(ctx, settings); err != nil {
				log.Fatalf("Failed to select lorem model: %v", err)
			}
		}

		outcome, err := application.Orchestrator.Generate(ctx, &generation.Request{
			ProjectID: res.Project.ID,
			ReportID:  res.Report.ID,
		})
		if err != nil {
			log.Fatalf("Failed to generate: %v", err)
		}
		log.Printf("Generated report: %s (%d bytes of markdown)", outcome.Status, len(outcome.Markdown))
	}

	log.Println("Seeding complete")
}
