package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/detective-go/internal/models"
)

var (
	chatLanguage string
	chatMessage  string
)

var chatCmd = &cobra.Command{
	Use:   "chat <case-id>",
	Short: "Talk to the investigation assistant",
	Long: `Open a conversation with the investigation assistant for a case. The
assistant searches the evidence and walks the knowledge graph before
answering, and cites the documents it used.

Examples:
  detective chat 0d9c1a...
  detective chat 0d9c1a... -m "Who approved the Apex invoices?"
  detective chat 0d9c1a... --language de`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "ask a single question instead of starting a session")
	chatCmd.Flags().StringVarP(&chatLanguage, "language", "l", "", "response language (defaults to the case language)")
}

func runChat(cmd *cobra.Command, args []string) error {
	caseID := args[0]
	ctx := context.Background()

	c, err := dbClient.QueryGetCase(ctx, caseID)
	if err != nil {
		return fmt.Errorf("get case: %w", err)
	}

	language := chatLanguage
	if language == "" {
		language = c.Language
	}

	svc, err := agentService(ctx)
	if err != nil {
		return err
	}

	ask := func(conversationID, message string) (string, error) {
		resp, err := svc.Chat(ctx, caseID, models.ChatRequest{
			Message:        message,
			ConversationID: conversationID,
			Language:       language,
		})
		if err != nil {
			return conversationID, err
		}
		printChatResponse(resp)
		return resp.ConversationID, nil
	}

	if chatMessage != "" {
		_, err := ask("", chatMessage)
		return err
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("no terminal attached; use --message for one-shot questions")
	}

	fmt.Printf("Case: %s\n%s\n\nAsk away. Ctrl+D or 'exit' to leave.\n\n", c.Title, c.Briefing)

	conversationID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		conversationID, err = ask(conversationID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func printChatResponse(resp *models.ChatResponse) {
	fmt.Printf("\n%s\n", resp.Message)

	if len(resp.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, c := range resp.Citations {
			fmt.Printf("  [%d] %s - %s\n", i+1, c.DocID, c.Relevance)
			if verbose && c.Quote != "" {
				fmt.Printf("      \"%s\"\n", c.Quote)
			}
		}
	}

	if len(resp.SuggestedActions) > 0 {
		fmt.Println("\nYou could also:")
		for _, s := range resp.SuggestedActions {
			fmt.Printf("  • %s\n", s)
		}
	}
	fmt.Println()
}
