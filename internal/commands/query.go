package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var searchK int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed pages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), logger())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.svc.Answer(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the nearest passages with their scores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), logger())
		if err != nil {
			return err
		}
		hits, err := a.svc.Search(cmd.Context(), strings.Join(args, " "), searchK)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintln(w, dimStyle("no results"))
		}
		for i, h := range hits {
			fmt.Fprintf(w, "%s score=%.3f distance=%.4f %v\n", labelStyle(fmt.Sprintf("#%d", i+1)), h.Score, h.Distance, h.Metadata["url"])
			fmt.Fprintln(w, preview(h.Text, 240))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), logger())
		if err != nil {
			return err
		}
		st := a.svc.Stats()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %d\n", labelStyle("total_vectors:"), st.Entries)
		fmt.Fprintf(w, "%s %d\n", labelStyle("dimension:    "), st.Dimension)
		fmt.Fprintf(w, "%s %s\n", labelStyle("index_size:   "), st.SizeKB())
		fmt.Fprintf(w, "%s %s\n", labelStyle("generator:    "), a.svc.GeneratorName())
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <url...>",
	Short: "Check that URLs are reachable",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), logger())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, st := range a.fetcher.Verify(cmd.Context(), args) {
			if st.Accessible {
				fmt.Fprintf(w, "%s %s  %d %s\n", okStyle("ok  "), st.URL, st.StatusCode, st.ContentType)
			} else {
				fmt.Fprintf(w, "%s %s  %s\n", failStyle("fail"), st.URL, st.Error)
			}
		}
		return nil
	},
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func logger() *slog.Logger { return slog.Default() }

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 5, "number of passages")
	rootCmd.AddCommand(askCmd, searchCmd, statsCmd, verifyCmd)
}
