package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kraklabs/devsentry/internal/rag"
	"github.com/kraklabs/devsentry/internal/store"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Ingest and search documents through the RAG pipeline",
}

var (
	docIngestType string
	docIngestRepo string
	docIngestTags string
)

var docsIngestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a file as a document, then chunk and embed it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		var repoID *string
		if docIngestRepo != "" {
			repoID = &docIngestRepo
		}
		path := args[0]
		doc, err := eng.store.CreateDocument(context.Background(), &store.Document{
			Title:    filepath.Base(path),
			Content:  string(content),
			DocType:  docIngestType,
			RepoID:   repoID,
			FilePath: &path,
			Tags:     splitTags(docIngestTags),
		})
		if err != nil {
			return err
		}

		if err := eng.indexer.IndexDocument(context.Background(), doc.ID); err != nil {
			return fmt.Errorf("index %s: %w", doc.Title, err)
		}
		fmt.Printf("indexed %s (id=%s)\n", doc.Title, doc.ID)
		return nil
	},
}

var (
	docSearchLimit     int
	docSearchThreshold float64
	docSearchDocType   string
	docSearchRepo      string
)

var docsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		candidates, err := eng.searcher.Search(context.Background(), args[0], rag.SearchFilter{
			DocType:       docSearchDocType,
			RepoID:        docSearchRepo,
			TopK:          docSearchLimit,
			MinSimilarity: docSearchThreshold,
		})
		if err != nil {
			return err
		}
		for _, c := range candidates {
			fmt.Printf("[%.3f] %s #%d\n%s\n\n", c.Similarity, c.DocumentTitle, c.ChunkIndex, c.Content)
		}
		return nil
	},
}

func init() {
	docsIngestCmd.Flags().StringVar(&docIngestType, "type", "reference", "Document type")
	docsIngestCmd.Flags().StringVar(&docIngestRepo, "repo", "", "Associate with a repository id")
	docsIngestCmd.Flags().StringVar(&docIngestTags, "tags", "", "Comma-separated tags")

	docsSearchCmd.Flags().IntVar(&docSearchLimit, "limit", 10, "Maximum results")
	docsSearchCmd.Flags().Float64Var(&docSearchThreshold, "threshold", 0, "Minimum similarity")
	docsSearchCmd.Flags().StringVar(&docSearchDocType, "type", "", "Filter by document type")
	docsSearchCmd.Flags().StringVar(&docSearchRepo, "repo", "", "Filter by repository id")

	docsCmd.AddCommand(docsIngestCmd, docsSearchCmd)
}
