package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/core/importer"
	"github.com/arpheno/mealprep/internal/infrastructure/config"
	"github.com/arpheno/mealprep/internal/infrastructure/database"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var store *catalog.Store

var rootCmd = &cobra.Command{
	Use:   "mealprep-importer",
	Short: "Import nutrient, food and reference value datasets into the mealprep database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if err := common.InitLogger(cfg.App.LogLevel); err != nil {
			return err
		}
		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}
		store = catalog.NewStore(db)

		common.LogInfo("Importer started",
			zap.String("run_id", common.GenerateUUID()),
			zap.String("command", cmd.Name()),
			zap.String("database_driver", cfg.Database.Driver),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		common.Sync()
	},
}

var nutrientsDeleteAll bool

var nutrientsCmd = &cobra.Command{
	Use:   "nutrients <file.json>",
	Short: "Import the authoritative nutrient list (upserts by FDC nutrient id)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		summary, err := importer.ImportNutrients(store, f, importer.NutrientsOptions{
			DeleteAll: nutrientsDeleteAll,
		})
		if err != nil {
			return err
		}
		fmt.Printf("nutrients: created=%d updated=%d skipped=%d aliases=%d orphans_deleted=%d\n",
			summary.Created, summary.Updated, summary.Skipped, summary.AliasesCreated, summary.OrphansDeleted)
		return nil
	},
}

var (
	foodsUpdateExisting bool
	foodsDeleteBefore   bool
)

var foodsCmd = &cobra.Command{
	Use:   "foods <file.json>",
	Short: "Import FDC food exports (foundational or survey)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		summary, err := importer.ImportFoods(store, f, importer.FoodsOptions{
			UpdateExisting:     foodsUpdateExisting,
			DeleteBeforeImport: foodsDeleteBefore,
		})
		if err != nil {
			return err
		}
		fmt.Printf("foods: created=%d updated=%d skipped=%d links=%d/%d portions=%d/%d nutrients_skipped=%d\n",
			summary.IngredientsCreated, summary.IngredientsUpdated, summary.IngredientsSkipped,
			summary.LinksCreated, summary.LinksUpdated,
			summary.PortionsCreated, summary.PortionsUpdated,
			summary.NutrientsSkipped)
		return nil
	},
}

var (
	drvUpdateExisting bool
	drvDryRun         bool
	drvSheet          string
)

var drvCmd = &cobra.Command{
	Use:   "drv <file.csv|file.xlsx>",
	Short: "Import dietary reference values from CSV or Excel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := importer.DRVOptions{
			UpdateExisting: drvUpdateExisting,
			DryRun:         drvDryRun,
		}

		var (
			summary *importer.DRVSummary
			err     error
		)
		switch strings.ToLower(filepath.Ext(args[0])) {
		case ".xlsx":
			summary, err = importer.ImportDRVXLSX(store, args[0], drvSheet, opts)
		default:
			f, openErr := os.Open(args[0])
			if openErr != nil {
				return openErr
			}
			defer f.Close()
			summary, err = importer.ImportDRVCSV(store, f, opts)
		}
		if err != nil {
			return err
		}
		if drvDryRun {
			fmt.Println("dry run: no changes were committed")
		}
		fmt.Printf("drv: created=%d updated=%d skipped=%d not_found=%d errors=%d\n",
			summary.Created, summary.Updated, summary.Skipped, summary.NotFound, summary.Errors)
		return nil
	},
}

func init() {
	nutrientsCmd.Flags().BoolVar(&nutrientsDeleteAll, "delete-all", false,
		"Delete all nutrients before importing")

	foodsCmd.Flags().BoolVar(&foodsUpdateExisting, "update-existing", false,
		"Update foods that already exist instead of skipping them")
	foodsCmd.Flags().BoolVar(&foodsDeleteBefore, "delete-before-import", false,
		"Delete all food data before importing")

	drvCmd.Flags().BoolVar(&drvUpdateExisting, "update-existing", false,
		"Update reference values that already exist instead of skipping them")
	drvCmd.Flags().BoolVar(&drvDryRun, "dry-run", false,
		"Parse and validate without committing any changes")
	drvCmd.Flags().StringVar(&drvSheet, "sheet", "", "Excel sheet name (default: Sheet1)")

	rootCmd.AddCommand(nutrientsCmd, foodsCmd, drvCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
