package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"ucrelay/pkg/extract"

	"github.com/spf13/cobra"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Extract structured records from reply text",
	Long:  "Normalizes reply text given as arguments or on stdin and prints any extracted record as JSON.",
	Run: func(cmd *cobra.Command, args []string) {
		text, err := resolveInput(args)
		if err != nil {
			fmt.Printf("failed to read input: %v\n", err)
			return
		}
		if text == "" {
			fmt.Println("no input text")
			return
		}

		record := extract.Parse(extract.Normalize(text))
		if record == nil {
			fmt.Println("no record recognized")
			return
		}

		output, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			fmt.Printf("failed to encode record: %v\n", err)
			return
		}

		fmt.Println(string(output))
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

// resolveInput joins arguments, or falls back to stdin when none given.
func resolveInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
