package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"intake_bot/internal/intake"
)

const sampleMessage = `Name: John Doe
Phone: +1234567890
Email: john@example.com
Project: Education App
School: Springfield Elementary
Teacher: Mrs. Smith
Grade: 5th
Subject: Mathematics
Lesson Titles: Fractions, Decimals
Notes: Please send by Friday`

var (
	parseFile  string
	parseJSON  bool
	parsePhone string
)

var parseCmd = &cobra.Command{
	Use:   "parse [message]",
	Short: "Classify a message and show the extracted fields",
	Long: `Runs the form classifier and field extractor on a message without
touching the database. The message comes from the argument, --file (use "-"
for stdin) or, when neither is given, a built-in sample.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := parseInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		result := intake.Extract(text)
		out := cmd.OutOrStdout()
		if parseJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"result":               result,
				"normalized":           intake.Normalize(result, parsePhone),
				"marker_table_version": intake.MarkerTableVersion,
			})
		}
		printResult(out, result)
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseFile, "file", "f", "", `read the message from a file ("-" for stdin)`)
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print JSON instead of text")
	parseCmd.Flags().StringVar(&parsePhone, "phone", "", "sender phone used when the message has none")
}

func parseInput(stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case parseFile == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case parseFile != "":
		b, err := os.ReadFile(parseFile)
		if err != nil {
			return "", fmt.Errorf("read message: %w", err)
		}
		return string(b), nil
	}
	return sampleMessage, nil
}

func printResult(w io.Writer, r intake.Result) {
	fmt.Fprintf(w, "Is form:    %v\n", r.IsForm)
	fmt.Fprintf(w, "Confidence: %.0f%%\n", r.Confidence*100)
	if len(r.MissingRequired) > 0 {
		missing := make([]string, len(r.MissingRequired))
		for i, k := range r.MissingRequired {
			missing[i] = string(k)
		}
		fmt.Fprintf(w, "Missing:    %s\n", strings.Join(missing, ", "))
	}

	if len(r.Fields) == 0 {
		return
	}
	fmt.Fprintln(w, "Fields:")
	for _, key := range intake.Schema {
		if r.Has(key) {
			fmt.Fprintf(w, "  %-18s %s\n", key+":", r.Get(key))
		}
	}
}
