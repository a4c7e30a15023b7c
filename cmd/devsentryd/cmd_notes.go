package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kraklabs/devsentry/internal/store"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Capture and browse notes",
}

var (
	noteAddRepo string
	noteAddTags string
)

var notesAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Capture a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		var repoID *string
		if noteAddRepo != "" {
			repoID = &noteAddRepo
		}
		note, err := eng.store.CreateNote(context.Background(), &store.Note{
			Content: args[0],
			RepoID:  repoID,
			Tags:    splitTags(noteAddTags),
		})
		if err != nil {
			return err
		}
		fmt.Printf("note captured (id=%s)\n", note.ID)
		return nil
	},
}

var (
	noteListStatus string
	noteListTag    string
	noteListRepo   string
)

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		notes, err := eng.store.ListNotes(context.Background(), store.NoteFilter{
			Status: noteListStatus,
			Tag:    noteListTag,
			RepoID: noteListRepo,
		})
		if err != nil {
			return err
		}
		for _, n := range notes {
			fmt.Printf("%s\t[%s]\t%s\n", n.ID, n.Status, n.Content)
		}
		return nil
	},
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func init() {
	notesAddCmd.Flags().StringVar(&noteAddRepo, "repo", "", "Associate with a repository id")
	notesAddCmd.Flags().StringVar(&noteAddTags, "tags", "", "Comma-separated tags")

	notesListCmd.Flags().StringVar(&noteListStatus, "status", "", "Filter by status")
	notesListCmd.Flags().StringVar(&noteListTag, "tag", "", "Filter by tag")
	notesListCmd.Flags().StringVar(&noteListRepo, "repo", "", "Filter by repository id")

	notesCmd.AddCommand(notesAddCmd, notesListCmd)
}
