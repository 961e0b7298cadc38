package agent

import (
	"context"
	"encoding/json"
)

// File is one entry returned by LIST_FILES / SEARCH_FILES.
type File struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Size int64  `json:"size,omitempty"`
	Dir  bool   `json:"is_dir,omitempty"`
}

// App is one entry returned by GET_APPS.
type App struct {
	Package string `json:"package"`
	Name    string `json:"name,omitempty"`
	System  bool   `json:"is_system,omitempty"`
}

// Stats is the payload returned by GET_STATS.
type Stats struct {
	CPU float64 `json:"cpu"`
	RAM float64 `json:"ram"`
}

// SearchResult is the payload returned by SEARCH_FILES.
type SearchResult struct {
	Results    []File `json:"results"`
	IsIndexing bool   `json:"is_indexing"`
}

// ListFiles implements scenario E: returns [] rather than null when the
// agent's "files" field is absent.
func (c *Channel) ListFiles(ctx context.Context, path string) ([]File, error) {
	data, err := c.Send(ctx, CmdListFiles, map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	files, ok := field(data, "files")
	if !ok {
		return []File{}, nil
	}
	var out []File
	if err := json.Unmarshal(files, &out); err != nil {
		return []File{}, nil
	}
	return out, nil
}

func (c *Channel) GetApps(ctx context.Context, includeSystem bool) ([]App, error) {
	data, err := c.Send(ctx, CmdGetApps, map[string]bool{"include_system": includeSystem})
	if err != nil {
		return nil, err
	}
	apps, ok := field(data, "apps")
	if !ok {
		return []App{}, nil
	}
	var out []App
	if err := json.Unmarshal(apps, &out); err != nil {
		return []App{}, nil
	}
	return out, nil
}

func (c *Channel) GetIcon(ctx context.Context, pkg string) (string, error) {
	data, err := c.Send(ctx, CmdGetIcon, map[string]string{"package": pkg})
	if err != nil {
		return "", err
	}
	icon, ok := field(data, "icon")
	if !ok {
		return "", nil
	}
	var out string
	_ = json.Unmarshal(icon, &out)
	return out, nil
}

func (c *Channel) GetStats(ctx context.Context) (Stats, error) {
	data, err := c.Send(ctx, CmdGetStats, map[string]string{})
	if err != nil {
		return Stats{}, err
	}
	stats, ok := field(data, "stats")
	if !ok {
		return Stats{}, nil
	}
	var out Stats
	_ = json.Unmarshal(stats, &out)
	return out, nil
}

func (c *Channel) GetClipboard(ctx context.Context) (string, error) {
	data, err := c.Send(ctx, CmdGetClipboard, map[string]string{})
	if err != nil {
		return "", err
	}
	text, ok := field(data, "text")
	if !ok {
		return "", nil
	}
	var out string
	_ = json.Unmarshal(text, &out)
	return out, nil
}

func (c *Channel) SetClipboard(ctx context.Context, text string) (bool, error) {
	data, err := c.Send(ctx, CmdSetClipboard, map[string]string{"text": text})
	if err != nil {
		return false, err
	}
	success, ok := field(data, "success")
	if !ok {
		return false, nil
	}
	var out bool
	_ = json.Unmarshal(success, &out)
	return out, nil
}

// InjectInput forwards a single input event; inputType is e.g. "TAP".
func (c *Channel) InjectInput(ctx context.Context, inputType string, x, y int) (bool, error) {
	data, err := c.Send(ctx, CmdInjectInput, map[string]interface{}{
		"input_type": inputType, "x": x, "y": y,
	})
	if err != nil {
		return false, err
	}
	success, ok := field(data, "success")
	if !ok {
		return false, nil
	}
	var out bool
	_ = json.Unmarshal(success, &out)
	return out, nil
}

func (c *Channel) IndexFiles(ctx context.Context, path string) (string, error) {
	data, err := c.Send(ctx, CmdIndexFiles, map[string]string{"path": path})
	if err != nil {
		return "", err
	}
	status, ok := field(data, "status")
	if !ok {
		return "", nil
	}
	var out string
	_ = json.Unmarshal(status, &out)
	return out, nil
}

func (c *Channel) SearchFiles(ctx context.Context, query string) (SearchResult, error) {
	data, err := c.Send(ctx, CmdSearchFiles, map[string]string{"query": query})
	if err != nil {
		return SearchResult{}, err
	}
	if len(data) == 0 || string(data) == "null" {
		return SearchResult{Results: []File{}, IsIndexing: false}, nil
	}
	var out SearchResult
	if err := json.Unmarshal(data, &out); err != nil {
		return SearchResult{Results: []File{}, IsIndexing: false}, nil
	}
	if out.Results == nil {
		out.Results = []File{}
	}
	return out, nil
}

func (c *Channel) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, CmdPing, map[string]string{})
	return err
}
