package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/osm"
)

var (
	importArea       string
	importCategories string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import businesses from OpenStreetMap",
	Long:  "Queries Overpass for the configured area and categories and inserts new businesses idempotently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		area, categories, err := loadImportSelection(importArea, importCategories)
		if err != nil {
			return err
		}

		inserted, err := env.Importer.Run(ctx, area, categories)
		if err != nil {
			return err
		}
		zap.L().Info("import complete",
			zap.String("area", importArea),
			zap.Int("categories", len(categories)),
			zap.Int("inserted", inserted))
		return nil
	},
}

// loadImportSelection resolves the area key and category list against the
// configured JSON files. categoriesArg "all" selects every category.
func loadImportSelection(areaKey, categoriesArg string) (osm.Area, []osm.Category, error) {
	areas, err := osm.LoadAreas(cfg.Overpass.AreasFile)
	if err != nil {
		return osm.Area{}, nil, err
	}
	area, ok := areas[areaKey]
	if !ok {
		keys := make([]string, 0, len(areas))
		for k := range areas {
			keys = append(keys, k)
		}
		return osm.Area{}, nil, eris.Errorf("unknown area %q (have: %s)", areaKey, strings.Join(keys, ", "))
	}

	all, err := osm.LoadCategories(cfg.Overpass.CategoriesFile)
	if err != nil {
		return osm.Area{}, nil, err
	}
	if categoriesArg == "" || categoriesArg == "all" {
		out := make([]osm.Category, 0, len(all))
		for _, c := range all {
			out = append(out, c)
		}
		return area, out, nil
	}

	var out []osm.Category
	for _, key := range strings.Split(categoriesArg, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		c, ok := all[key]
		if !ok {
			return osm.Area{}, nil, eris.Errorf("unknown category %q", key)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return osm.Area{}, nil, eris.New("no categories selected")
	}
	return area, out, nil
}

func init() {
	importCmd.Flags().StringVar(&importArea, "area", "", "area key from the areas file (required)")
	importCmd.Flags().StringVar(&importCategories, "categories", "all", "comma-separated category keys, or \"all\"")
	_ = importCmd.MarkFlagRequired("area")
	rootCmd.AddCommand(importCmd)
}
