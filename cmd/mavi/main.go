// Command mavi is a command line client for the Mavi video
// understanding API.
//
// Usage:
//
//	mavi upload <file> [--callback URL]
//	mavi search [--status PARSE] [--page N] [--page-size N]
//	mavi search-ai <query>
//	mavi clips <query> --video <videoNo> [--video ...]
//	mavi chat <message> --video <videoNo> [--video ...] [--stream]
//	mavi transcribe <videoNo> [--type AUDIO|VIDEO]
//	mavi transcription <taskNo>
//	mavi delete <videoNo> [<videoNo> ...]
//
// Configuration is read from a YAML file (MAVI_CONFIG, ./config.yaml or
// /etc/mavi/config.yaml) with environment overrides; MAVI_API_KEY is the
// only required setting.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/openinterx/mavi-go/pkg/config"
	"github.com/openinterx/mavi-go/pkg/debug"
	"github.com/openinterx/mavi-go/pkg/mavi"
	"github.com/openinterx/mavi-go/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level)

	var transport http.RoundTripper
	if cfg.Observability.Metrics.Enabled {
		transport = &observability.Transport{}
		go serveMetrics(cfg.Observability.Metrics)
	}

	client, err := mavi.New(mavi.Config{
		APIKey:    cfg.Client.APIKey,
		BaseURL:   cfg.Client.BaseURL,
		Timeout:   cfg.Client.Timeout,
		Transport: transport,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "upload":
		return cmdUpload(ctx, client, rest)
	case "search":
		return cmdSearch(ctx, client, rest)
	case "search-ai":
		return cmdSearchAI(ctx, client, rest)
	case "clips":
		return cmdClips(ctx, client, rest)
	case "chat":
		return cmdChat(ctx, client, rest)
	case "transcribe":
		return cmdTranscribe(ctx, client, rest)
	case "transcription":
		return cmdTranscription(ctx, client, rest)
	case "delete":
		return cmdDelete(ctx, client, rest)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: mavi <command> [arguments]

commands:
  upload         upload a video file
  search         list uploaded videos by metadata
  search-ai      rank videos by a natural language query
  clips          find matching clips inside parsed videos
  chat           ask a question about one or more videos
  transcribe     submit a transcription task
  transcription  fetch a transcription task result
  delete         delete videos by ID`)
}

func serveMetrics(cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), mux)
}

func cmdUpload(ctx context.Context, client *mavi.Client, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	callback := fs.String("callback", "", "callback URL invoked when parsing finishes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mavi upload <file> [--callback URL]")
	}

	var opts *mavi.UploadOptions
	if *callback != "" {
		opts = &mavi.UploadOptions{CallbackURI: *callback}
	}
	video, err := client.UploadVideoFile(ctx, fs.Arg(0), opts)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %s as %s (status %s)\n", video.VideoName, video.VideoNo, video.VideoStatus)
	return nil
}

func cmdSearch(ctx context.Context, client *mavi.Client, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status: PARSE, UNPARSE or FAIL")
	page := fs.Int("page", 0, "result page, 1-based")
	pageSize := fs.Int("page-size", 0, "results per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	videos, err := client.SearchMetadata(ctx, &mavi.SearchMetadataRequest{
		VideoStatus: mavi.VideoStatus(*status),
		Page:        *page,
		PageSize:    *pageSize,
	})
	if err != nil {
		return err
	}
	printVideos(videos)
	return nil
}

func cmdSearchAI(ctx context.Context, client *mavi.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mavi search-ai <query>")
	}
	videos, err := client.SearchAI(ctx, args[0])
	if err != nil {
		return err
	}
	printVideos(videos)
	return nil
}

func cmdClips(ctx context.Context, client *mavi.Client, args []string) error {
	fs := flag.NewFlagSet("clips", flag.ContinueOnError)
	videos := multiFlag{}
	fs.Var(&videos, "video", "video number to search in (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mavi clips <query> --video <videoNo>")
	}

	clips, err := client.SearchClips(ctx, fs.Arg(0), videos)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VIDEO\tSTART\tEND\tNAME")
	for _, c := range clips {
		fmt.Fprintf(tw, "%s\t%.1fs\t%.1fs\t%s\n", c.VideoNo, c.FragmentStartTime, c.FragmentEndTime, c.VideoName)
	}
	return tw.Flush()
}

func cmdChat(ctx context.Context, client *mavi.Client, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	videos := multiFlag{}
	fs.Var(&videos, "video", "video number to chat about (repeatable)")
	stream := fs.Bool("stream", false, "stream the answer as it is generated")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mavi chat <message> --video <videoNo> [--stream]")
	}

	req := &mavi.ChatRequest{VideoNos: videos, Message: fs.Arg(0)}

	if !*stream {
		answer, err := client.Chat(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	events, err := client.ChatStream(ctx, req)
	if err != nil {
		return err
	}
	for ev := range events {
		if ev.Type == mavi.ChatEventError {
			fmt.Println()
			return ev.Err
		}
		fmt.Print(ev.Delta)
	}
	fmt.Println()
	return nil
}

func cmdTranscribe(ctx context.Context, client *mavi.Client, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	typ := fs.String("type", "AUDIO", "transcription type: AUDIO or VIDEO")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mavi transcribe <videoNo> [--type AUDIO|VIDEO]")
	}

	taskNo, err := client.Transcribe(ctx, fs.Arg(0), mavi.TranscriptionType(*typ))
	if err != nil {
		return err
	}
	fmt.Println(taskNo)
	return nil
}

func cmdTranscription(ctx context.Context, client *mavi.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mavi transcription <taskNo>")
	}
	tr, err := client.Transcription(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("task %s: %s\n", tr.TaskNo, tr.Status)
	for _, seg := range tr.Transcriptions {
		fmt.Printf("[%7.1fs - %7.1fs] %s\n", seg.StartTime, seg.EndTime, seg.Content)
	}
	return nil
}

func cmdDelete(ctx context.Context, client *mavi.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mavi delete <videoNo> [<videoNo> ...]")
	}
	if err := client.DeleteVideos(ctx, args); err != nil {
		return err
	}
	fmt.Printf("deleted %d video(s)\n", len(args))
	return nil
}

func printVideos(videos []mavi.Video) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VIDEO\tSTATUS\tUPLOADED\tNAME")
	for _, v := range videos {
		uploaded := time.UnixMilli(v.UploadTime).Format("2006-01-02 15:04")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.VideoNo, v.VideoStatus, uploaded, v.VideoName)
	}
	tw.Flush()
}

// multiFlag collects repeated --video flags.
type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint([]string(*m)) }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
