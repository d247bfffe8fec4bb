package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"guideboard/api"
	"guideboard/store"
	"guideboard/watcher"
)

func addServe(topLevel *cobra.Command, a *app) {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Avvia il server API",
		Example: `
guideboard serve
guideboard serve --port 8080
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return a.serve(cmd)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 5000, "porta HTTP")

	topLevel.AddCommand(cmd)
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg

	st, err := store.Open(ctx, cfg.Driver, cfg.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	// il watcher ha senso solo con i file su disco
	var dw *watcher.DocumentWatcher
	if disk, ok := st.(*store.Disk); ok && cfg.Watch {
		dw, err = watcher.NewDocumentWatcher(watcher.WatcherConfig{
			UsersDir:     disk.UsersDir(),
			DebounceTime: cfg.Debounce,
			Logger:       a.logger.Named("watcher"),
		})
		if err != nil {
			return err
		}
	}

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.Port,
		Store:          st,
		Watcher:        dw,
		Logger:         a.logger.Named("api"),
		EnableCORS:     cfg.CORS,
		Debug:          cfg.Debug,
		StaticDir:      cfg.StaticDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	a.logger.Info("📂 Dati",
		zap.String("driver", cfg.Driver),
		zap.String("path", filepath.Clean(cfg.StorePath())),
		zap.String("config", cfg.File))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if dw != nil {
		g.Go(func() error {
			return dw.Run(gctx)
		})
	}
	return g.Wait()
}
