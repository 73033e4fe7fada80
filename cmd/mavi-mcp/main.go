// Command mavi-mcp exposes the Mavi video understanding API as MCP
// tools, so that agents can search and chat about uploaded videos.
// Provides "list_videos", "video_search", "clip_search" and
// "video_chat" tools over streamable HTTP on /mcp.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openinterx/mavi-go/pkg/config"
	"github.com/openinterx/mavi-go/pkg/debug"
	"github.com/openinterx/mavi-go/pkg/mavi"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level)
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug logging enabled", "categories", cats)
	}

	client, err := mavi.New(mavi.Config{
		APIKey:  cfg.Client.APIKey,
		BaseURL: cfg.Client.BaseURL,
		Timeout: cfg.Client.Timeout,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	server := newServer(client)

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	addr := fmt.Sprintf(":%d", cfg.MCP.Port)
	slog.Info("mavi mcp server starting", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// newServer builds the MCP server with the video tools registered.
func newServer(client *mavi.Client) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "mavi-mcp", Version: "v1.0.0"},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_videos",
		Description: "Lists uploaded videos with their processing status",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ListVideosInput) (*mcp.CallToolResult, struct{}, error) {
		videos, err := client.SearchMetadata(ctx, &mavi.SearchMetadataRequest{
			VideoStatus: mavi.VideoStatus(input.Status),
		})
		if err != nil {
			return nil, struct{}{}, err
		}
		return textResult(formatVideos(videos)), struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_search",
		Description: "Ranks uploaded videos by relevance to a natural language query",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, struct{}, error) {
		videos, err := client.SearchAI(ctx, input.Query)
		if err != nil {
			return nil, struct{}{}, err
		}
		return textResult(formatVideos(videos)), struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clip_search",
		Description: "Finds clips matching a natural language query inside parsed videos",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ClipSearchInput) (*mcp.CallToolResult, struct{}, error) {
		clips, err := client.SearchClips(ctx, input.Query, input.VideoNos)
		if err != nil {
			return nil, struct{}{}, err
		}
		return textResult(formatClips(clips)), struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_chat",
		Description: "Asks a question about one or more uploaded videos and returns the answer",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, struct{}, error) {
		answer, err := client.Chat(ctx, &mavi.ChatRequest{
			VideoNos: input.VideoNos,
			Message:  input.Message,
		})
		if err != nil {
			return nil, struct{}{}, err
		}
		return textResult(answer), struct{}{}, nil
	})

	return server
}

type ListVideosInput struct {
	Status string `json:"status,omitempty" jsonschema_description:"Optional status filter: PARSE, UNPARSE or FAIL"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema_description:"Natural language description of the video content"`
}

type ClipSearchInput struct {
	Query    string   `json:"query" jsonschema_description:"Natural language description of the moment to find"`
	VideoNos []string `json:"videoNos" jsonschema_description:"Video numbers to search within, must be parsed videos"`
}

type ChatInput struct {
	Message  string   `json:"message" jsonschema_description:"The question to ask about the videos"`
	VideoNos []string `json:"videoNos" jsonschema_description:"Video numbers the question refers to"`
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func formatVideos(videos []mavi.Video) string {
	if len(videos) == 0 {
		return "No videos found."
	}
	var sb strings.Builder
	for _, v := range videos {
		fmt.Fprintf(&sb, "%s: %s (%s)\n", v.VideoNo, v.VideoName, v.VideoStatus)
	}
	return sb.String()
}

func formatClips(clips []mavi.Clip) string {
	if len(clips) == 0 {
		return "No matching clips found."
	}
	var sb strings.Builder
	for _, c := range clips {
		fmt.Fprintf(&sb, "%s: %.1fs-%.1fs in %s\n", c.VideoNo, c.FragmentStartTime, c.FragmentEndTime, c.VideoName)
	}
	return sb.String()
}
