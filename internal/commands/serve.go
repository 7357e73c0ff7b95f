package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"nextraction/internal/httpapi"
	"nextraction/internal/tui"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a, err := buildApp(cfg, logger())
		if err != nil {
			return err
		}
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		return httpapi.New(a.svc, a.fetcher, logger()).Run(cmd.Context(), addr)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat over the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), logger())
		if err != nil {
			return err
		}
		st := a.svc.Stats()
		header := fmt.Sprintf("%d passages, dimension %d, generator %s", st.Entries, st.Dimension, a.svc.GeneratorName())
		_, err = tea.NewProgram(tui.New(cmd.Context(), a.svc, header), tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	rootCmd.AddCommand(serveCmd, chatCmd)
}
