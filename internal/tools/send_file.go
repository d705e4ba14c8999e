package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// mimeByExtension mirrors the extension guess table in
// original_source/src/tools/send_file.rs.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func guessMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mimeByExtension[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// SendFileTool queues a file under the turn's cwd to be attached to the
// outbound reply (grounded on original_source/src/tools/send_file.rs).
type SendFileTool struct{}

func (SendFileTool) Name() string { return "send_file" }
func (SendFileTool) Description() string {
	return "Queue a file to be sent as an attachment alongside your reply."
}

func (SendFileTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path to the file, relative to the current directory.",
		},
		"mime_type": map[string]any{
			"type":        "string",
			"description": "Override the guessed MIME type.",
		},
	}, []string{"path"})
}

func (SendFileTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Path     string `json:"path"`
		MimeType string `json:"mime_type"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	resolved, err := resolveCWDPath(tc.Workspace, tc.CWD(), args.Path)
	if err != nil {
		return Error(err.Error()), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Error(fmt.Sprintf("Failed to access file: %s", err)), nil
	}
	if info.IsDir() {
		return Error(fmt.Sprintf("%s is a directory, not a file", args.Path)), nil
	}

	mimeType := args.MimeType
	if mimeType == "" {
		mimeType = guessMimeType(resolved)
	}

	tc.QueueAttachment(Attachment{Path: resolved, MimeType: mimeType})

	rel := displayPath(tc.Workspace, resolved)
	return Success(fmt.Sprintf("Queued %s (%s) for sending", rel, mimeType)), nil
}
