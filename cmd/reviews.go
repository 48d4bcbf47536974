package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/parallel-analyst/pkg/reviewdb"
)

var errNoReviewStore = errors.New("REVIEWDB_DSN is not set")

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Manage the owner review store",
}

var reviewsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the review table and search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openReviewStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate review store: %w", err)
		}
		log.Info().Msg("review store migrated")
		return nil
	},
}

var reviewsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load reviews from a JSON array file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviews, err := readReviews(args[0])
		if err != nil {
			return err
		}

		store, err := openReviewStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Insert(cmd.Context(), reviews)
		if err != nil {
			return fmt.Errorf("import reviews: %w", err)
		}
		log.Info().Int("inserted", n).Str("file", args[0]).Msg("reviews imported")
		return nil
	},
}

func init() {
	reviewsCmd.AddCommand(reviewsMigrateCmd)
	reviewsCmd.AddCommand(reviewsImportCmd)
}

func openReviewStore() (*reviewdb.Store, error) {
	src, err := loadSources()
	if err != nil {
		return nil, err
	}
	if src.reviews == nil {
		return nil, errNoReviewStore
	}
	return src.reviews, nil
}

func readReviews(path string) ([]reviewdb.Review, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reviews []reviewdb.Review
	if err := json.Unmarshal(raw, &reviews); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return reviews, nil
}
