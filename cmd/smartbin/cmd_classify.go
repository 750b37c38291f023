package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/smartbin/internal/classifier"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify [class] <item>",
	Short: "Show how a detection would be classified",
	Long: "Classify a raw detector class and item text offline.\n" +
		"With one argument the class is taken as empty. With none, the rule table is printed.",
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			printRules(out)
		case 1:
			printClassification(out, "", args[0])
		default:
			printClassification(out, args[0], args[1])
		}
		return nil
	},
}

func printClassification(w io.Writer, rawClass, item string) {
	category, rule := classifier.Explain(rawClass, item)
	if rule.Field == classifier.FieldNone {
		fmt.Fprintf(w, "%s (no rule matched, fallback)\n", category)
		return
	}
	fmt.Fprintf(w, "%s (matched %s keywords: %s)\n", category, rule.Field, strings.Join(rule.Keywords, ", "))
}

func printRules(w io.Writer) {
	for i, r := range classifier.Rules() {
		keywords := strings.Join(r.Keywords, ", ")
		if r.Field == classifier.FieldNone {
			keywords = "*"
		}
		fmt.Fprintf(w, "%d. %-7s %-40s -> %s\n", i+1, r.Field, keywords, r.Category)
	}
}
