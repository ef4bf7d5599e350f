// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/storage"
)

const historyLongDesc string = `List and manage stored conversations.

Conversations are saved after every completed reply unless history is
disabled. Commands that take a conversation accept its ID, a unique ID
prefix, or its number in the list.

Examples:
  chatdeck history
  chatdeck history --search onboarding
  chatdeck history show 1
  chatdeck history delete 3f2a`

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		search  string
		content bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List stored conversations",
		Long:    historyLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, g, func(store *storage.ConversationStore) error {
				var (
					metas []storage.ConversationMeta
					err   error
				)
				switch {
				case search != "" && content:
					metas, err = store.SearchMessages(search)
				case search != "":
					metas, err = store.Search(search)
				default:
					metas, err = store.List()
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), metas)
				}
				fmt.Fprint(cmd.OutOrStdout(), storage.FormatList(metas))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only conversations whose title or first question matches")
	cmd.Flags().BoolVar(&content, "content", false, "Search every message instead of titles")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	cmd.AddCommand(newHistoryShowCmd(g), newHistoryDeleteCmd(g), newHistoryClearCmd(g))
	return cmd
}

func newHistoryShowCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <conversation>",
		Short: "Print a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, g, func(store *storage.ConversationStore) error {
				conv, err := store.Resolve(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), conv)
				}
				printConversation(cmd.OutOrStdout(), conv)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newHistoryDeleteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <conversation>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, g, func(store *storage.ConversationStore) error {
				conv, err := store.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(conv.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted")+" "+conv.Title)
				return nil
			})
		},
	}
}

func newHistoryClearCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return usageErrorf("chatdeck history clear --yes", "refusing to delete all conversations without --yes")
			}
			return withStore(cmd, g, func(store *storage.ConversationStore) error {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("History cleared"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

// withStore runs fn with the history store of a line-mode app.
func withStore(cmd *cobra.Command, g *globalFlags, fn func(*storage.ConversationStore) error) error {
	a, err := g.newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.requireStore()
	if err != nil {
		return err
	}
	return fn(store)
}

func printConversation(w io.Writer, conv *storage.StoredConversation) {
	fmt.Fprintln(w, TitleStyle.Render(conv.Title))
	fmt.Fprintln(w, keyValue("ID:", conv.ID))
	fmt.Fprintln(w, keyValue("Backend:", conv.Backend))
	fmt.Fprintln(w, keyValue("Created:", conv.CreatedAt.Format("2006-01-02 15:04")))
	fmt.Fprintln(w, keyValue("Updated:", conv.UpdatedAt.Format("2006-01-02 15:04")))
	for _, msg := range conv.Messages {
		role := model.Role(msg.Role)
		style := PromptStyle
		if role == model.RoleAssistant {
			style = AssistantStyle
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, style.Render(role.DisplayName()))
		fmt.Fprintln(w, msg.Content)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
