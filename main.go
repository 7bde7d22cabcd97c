package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gazo/config"
	"gazo/discover"
	"gazo/downloader"
	"gazo/models"
	"gazo/pipeline"
)

var (
	cfg      config.Config
	listFile string

	// auto mode
	autoStartPage int
	autoEndPage   int
	autoMaxPages  int
	autoMaxAlbums int
)

func main() {
	cfg = config.Load()

	root := &cobra.Command{
		Use:     "gazo [url...]",
		Short:   "Download image albums from gallery pages",
		Long:    "gazo extracts image sequences from album pages and downloads them\ninto per-album directories with stable positional names, resuming\npartial downloads across runs.",
		Version: config.FullVersion(),
		Args:    cobra.ArbitraryArgs,
		RunE:    runDownload,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.DownloadDir, "output", "o", cfg.DownloadDir, "root directory for downloaded albums")
	flags.DurationVarP(&cfg.Delay, "delay", "d", cfg.Delay, "pause between page visits")
	flags.DurationVar(&cfg.DownloadDelay, "download-delay", cfg.DownloadDelay, "pause between image downloads")
	flags.DurationVar(&cfg.DownloadTimeout, "timeout", cfg.DownloadTimeout, "per-request HTTP timeout")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "additional attempts per incomplete album")
	flags.BoolVarP(&cfg.CreateZip, "zip", "z", cfg.CreateZip, "archive each completed album as (ID).zip")
	flags.BoolVar(&cfg.ConvertJPEG, "convert-jpg", cfg.ConvertJPEG, "re-encode finished images as JPEG")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "verbose logging")

	root.Flags().StringVarP(&listFile, "file", "f", "", "worklist file of album URLs, one per line")

	root.AddCommand(autoCommand(), listCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && listFile == "" {
		return cmd.Help()
	}

	ctx, stop := signalContext()
	defer stop()

	runner, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	if listFile != "" {
		results, err := runner.RunFile(ctx, listFile)
		if err != nil {
			return err
		}
		return exitError(results)
	}

	return exitError(runner.RunURLs(ctx, args))
}

func autoCommand() *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Crawl a listing and download every discovered album",
		RunE: func(cmd *cobra.Command, args []string) error {
			if startURL == "" {
				return fmt.Errorf("--url is required")
			}

			ctx, stop := signalContext()
			defer stop()

			runner, err := pipeline.New(cfg)
			if err != nil {
				return err
			}
			defer runner.Close()

			results, err := runner.RunAuto(ctx, startURL, discover.CrawlOptions{
				StartPage: autoStartPage,
				EndPage:   autoEndPage,
				MaxPages:  autoMaxPages,
				MaxAlbums: autoMaxAlbums,
			})
			if err != nil {
				return err
			}
			return exitError(results)
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "listing page to start crawling from")
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL for resolving relative links")
	cmd.Flags().IntVar(&autoStartPage, "start-page", 1, "first listing page")
	cmd.Flags().IntVar(&autoEndPage, "end-page", 0, "last listing page (0 = until exhausted)")
	cmd.Flags().IntVar(&autoMaxPages, "max-pages", 0, "cap on listing pages (0 = unlimited)")
	cmd.Flags().IntVar(&autoMaxAlbums, "max-albums", 0, "cap on albums per listing page (0 = all)")
	return cmd
}

func listCommand() *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print album links from a listing without downloading",
		RunE: func(cmd *cobra.Command, args []string) error {
			if startURL == "" {
				return fmt.Errorf("--url is required")
			}

			crawler := discover.NewCrawler(cfg)
			opts := discover.CrawlOptions{
				StartPage: autoStartPage,
				EndPage:   autoEndPage,
				MaxPages:  autoMaxPages,
				MaxAlbums: autoMaxAlbums,
			}

			count := 0
			_, err := crawler.Run(startURL, opts, func(album models.AlbumRef) bool {
				fmt.Printf("%s\t%s\n", album.ID, album.SourceURL)
				count++
				return true
			})
			if err != nil {
				return err
			}
			log.Printf("[List] %d albums found", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "listing page to start from")
	cmd.Flags().IntVar(&autoStartPage, "start-page", 1, "first listing page")
	cmd.Flags().IntVar(&autoEndPage, "end-page", 0, "last listing page (0 = until exhausted)")
	cmd.Flags().IntVar(&autoMaxPages, "max-pages", 0, "cap on listing pages (0 = unlimited)")
	cmd.Flags().IntVar(&autoMaxAlbums, "max-albums", 0, "cap on albums per listing page (0 = all)")
	return cmd
}

// signalContext cancels on SIGINT/SIGTERM so in-flight downloads stop
// cleanly and partial files get removed.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exitError maps the run outcome to the process exit status: any album
// ending in a failed state makes the whole run fail.
func exitError(results []downloader.AlbumResult) error {
	failed := 0
	for _, result := range results {
		if result.State == models.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d albums failed", failed, len(results))
	}
	return nil
}
