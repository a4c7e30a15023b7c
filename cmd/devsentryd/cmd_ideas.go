package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/devsentry/internal/store"
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Capture and browse ideas",
}

var (
	ideaAddPriority int
	ideaAddCategory string
	ideaAddRepo     string
	ideaAddTags     string
)

var ideasAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Capture an idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		var repoID *string
		if ideaAddRepo != "" {
			repoID = &ideaAddRepo
		}
		idea, err := eng.store.CreateIdea(context.Background(), &store.Idea{
			Content:  args[0],
			Priority: ideaAddPriority,
			Category: ideaAddCategory,
			RepoID:   repoID,
			Tags:     splitTags(ideaAddTags),
		})
		if err != nil {
			return err
		}
		fmt.Printf("idea captured (id=%s)\n", idea.ID)
		return nil
	},
}

var (
	ideaListCategory string
	ideaListTag      string
	ideaListRepo     string
)

var ideasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ideas",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		ideas, err := eng.store.ListIdeas(context.Background(), store.IdeaFilter{
			Category: ideaListCategory,
			Tag:      ideaListTag,
			RepoID:   ideaListRepo,
		})
		if err != nil {
			return err
		}
		for _, i := range ideas {
			fmt.Printf("%s\tp%d\t[%s]\t%s\n", i.ID, i.Priority, i.Category, i.Content)
		}
		return nil
	},
}

func init() {
	ideasAddCmd.Flags().IntVar(&ideaAddPriority, "priority", 3, "Priority (1=highest, 5=lowest)")
	ideasAddCmd.Flags().StringVar(&ideaAddCategory, "category", "", "Category")
	ideasAddCmd.Flags().StringVar(&ideaAddRepo, "repo", "", "Associate with a repository id")
	ideasAddCmd.Flags().StringVar(&ideaAddTags, "tags", "", "Comma-separated tags")

	ideasListCmd.Flags().StringVar(&ideaListCategory, "category", "", "Filter by category")
	ideasListCmd.Flags().StringVar(&ideaListTag, "tag", "", "Filter by tag")
	ideasListCmd.Flags().StringVar(&ideaListRepo, "repo", "", "Filter by repository id")

	ideasCmd.AddCommand(ideasAddCmd, ideasListCmd)
}
