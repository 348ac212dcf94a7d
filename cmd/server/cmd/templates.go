package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

type templateImporter interface {
	ImportTemplates(ctx context.Context, list []feiseanna.Template) (int, error)
}

func newTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage syllabus templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Import syllabus templates from YAML",
		Long: `Import syllabus templates from a YAML file. A template with the same
name as an existing one replaces it.

  templates:
    - name: Grades
      events:
        - name: Beginner Reel U8
          code: "101"
          type: R
          fee: 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open templates: %w", err)
			}
			defer func() { _ = f.Close() }()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo, err := postgres.NewRepository(pool)
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Logging)
			svc := feiseanna.NewService(repo.Feiseanna(), nil, nil, nil, logger)

			n, err := importTemplates(cmd.Context(), f, svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d template(s)\n", n)
			return nil
		},
	})
	return cmd
}

func importTemplates(ctx context.Context, r io.Reader, imp templateImporter) (int, error) {
	list, err := feiseanna.ParseTemplates(r)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, fmt.Errorf("no templates found")
	}
	return imp.ImportTemplates(ctx, list)
}
