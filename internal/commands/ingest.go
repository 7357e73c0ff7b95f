package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nextraction/internal/service"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest [url...]",
	Short: "Fetch, clean, chunk and index web pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := append([]string(nil), args...)
		if ingestFile != "" {
			more, err := readURLFile(ingestFile)
			if err != nil {
				return err
			}
			urls = append(urls, more...)
		}
		if len(urls) == 0 {
			return fmt.Errorf("no urls given")
		}
		a, err := buildApp(GetConfig(), logger())
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), a.svc.Ingest(cmd.Context(), urls))
		return nil
	},
}

func printReport(w io.Writer, rep service.IngestReport) {
	for _, r := range rep.Results {
		if r.Succeeded() {
			fmt.Fprintf(w, "%s %s  %d chunks, %d chars\n", okStyle("ok    "), r.URL, r.ChunksAdded, r.TotalChars)
		} else {
			fmt.Fprintf(w, "%s %s  %s\n", failStyle("failed"), r.URL, r.Reason())
		}
	}
	fmt.Fprintf(w, "%s %d/%d urls ingested, %d vectors in index\n",
		labelStyle("done:"), rep.Successful, rep.TotalURLs, rep.TotalVectors)
}

// readURLFile reads one URL per line; blank lines and # comments are skipped.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "file with one url per line")
	rootCmd.AddCommand(ingestCmd)
}
