package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/filedock"
)

// Formatter formats results for output.
type Formatter interface {
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatList(w io.Writer, result *ListResult) error
	FormatInfo(w io.Writer, info filedock.FileInfo) error
	FormatStats(w io.Writer, stats filedock.FileStats) error
	FormatFolders(w io.Writer, folders []filedock.Folder) error
	FormatFolder(w io.Writer, folder filedock.Folder) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if f.Quiet {
			_, _ = fmt.Fprintln(w, r.File.ID)
			continue
		}
		_, _ = fmt.Fprintf(w, "Uploaded: %s -> %s (%s)\n", r.LocalPath, r.File.ID, formatSize(r.File.Size))
		if r.File.Checksum != nil {
			_, _ = fmt.Fprintf(w, "  Checksum: %s\n", *r.File.Checksum)
		}
	}
	return nil
}

func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if f.Quiet {
		return nil
	}
	if result.LocalPath == "-" {
		_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", result.Name, formatSize(result.Size))
	} else {
		_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.Name, result.LocalPath, formatSize(result.Size))
	}
	return nil
}

func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.ID, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s (%s)\n", r.ID, r.Name)
		}
	}
	return nil
}

func (f *HumanFormatter) FormatList(w io.Writer, result *ListResult) error {
	if len(result.Files) == 0 {
		_, _ = fmt.Fprintln(w, "No files found")
		return nil
	}

	if f.Quiet {
		for i := range result.Files {
			_, _ = fmt.Fprintln(w, result.Files[i].ID)
		}
		return nil
	}

	maxNameLen := 4 // "NAME"
	for i := range result.Files {
		maxNameLen = max(maxNameLen, len(result.Files[i].Name))
	}
	maxNameLen = min(maxNameLen, 40)

	_, _ = fmt.Fprintf(w, "%-36s  %-*s  %10s  %-9s  %s\n", "ID", maxNameLen, "NAME", "SIZE", "STATUS", "CREATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		strings.Repeat("-", 36), strings.Repeat("-", maxNameLen), strings.Repeat("-", 10),
		strings.Repeat("-", 9), strings.Repeat("-", 19))

	for i := range result.Files {
		file := &result.Files[i]
		_, _ = fmt.Fprintf(w, "%-36s  %-*s  %10s  %-9s  %s\n",
			file.ID,
			maxNameLen,
			truncate(file.Name, maxNameLen),
			formatSize(file.Size),
			file.Status,
			file.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	p := result.Pagination
	_, _ = fmt.Fprintf(w, "\n%d file(s) (%s), page %d of %d, %d total\n",
		len(result.Files), formatSize(result.TotalSize()), p.Page, max(p.TotalPages, 1), p.Total)
	if p.HasNext {
		_, _ = fmt.Fprintf(w, "Next page: use --page %d\n", p.Page+1)
	}

	return nil
}

func (f *HumanFormatter) FormatInfo(w io.Writer, info filedock.FileInfo) error {
	file := info.File
	_, _ = fmt.Fprintf(w, "ID:          %s\n", file.ID)
	_, _ = fmt.Fprintf(w, "Name:        %s\n", file.Name)
	_, _ = fmt.Fprintf(w, "MIME type:   %s\n", file.MimeType)
	_, _ = fmt.Fprintf(w, "Size:        %s\n", formatSize(file.Size))
	_, _ = fmt.Fprintf(w, "Status:      %s\n", file.Status)
	_, _ = fmt.Fprintf(w, "Key:         %s\n", file.StoragePath)
	if file.Checksum != nil {
		_, _ = fmt.Fprintf(w, "Checksum:    %s\n", *file.Checksum)
	}
	switch {
	case file.Folder != nil:
		_, _ = fmt.Fprintf(w, "Folder:      %s (%s)\n", file.Folder.Name, file.Folder.ID)
	case file.FolderID != nil:
		_, _ = fmt.Fprintf(w, "Folder:      %s\n", *file.FolderID)
	default:
		_, _ = fmt.Fprintln(w, "Folder:      (root)")
	}
	if file.Description != nil {
		_, _ = fmt.Fprintf(w, "Description: %s\n", *file.Description)
	}
	if len(file.Tags) > 0 {
		_, _ = fmt.Fprintf(w, "Tags:        %s\n", strings.Join(file.Tags, ", "))
	}
	_, _ = fmt.Fprintf(w, "Created:     %s\n", file.CreatedAt.Format("2006-01-02 15:04:05"))

	v := info.S3Verification
	switch {
	case v.Error != "":
		_, _ = fmt.Fprintf(w, "Object:      unknown (%s)\n", v.Error)
	case v.Exists && v.Size != nil:
		_, _ = fmt.Fprintf(w, "Object:      present (%s)\n", formatSize(*v.Size))
	case v.Exists:
		_, _ = fmt.Fprintln(w, "Object:      present")
	default:
		_, _ = fmt.Fprintln(w, "Object:      missing")
	}
	return nil
}

func (f *HumanFormatter) FormatStats(w io.Writer, stats filedock.FileStats) error {
	_, _ = fmt.Fprintf(w, "%d file(s), %s\n", stats.TotalFiles, formatSize(stats.TotalSize))
	if f.Quiet || len(stats.MimeTypeDistribution) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%-40s  %8s  %10s\n", "MIME TYPE", "COUNT", "SIZE")
	for _, s := range stats.MimeTypeDistribution {
		_, _ = fmt.Fprintf(w, "%-40s  %8d  %10s\n", truncate(s.MimeType, 40), s.Count, formatSize(s.Size))
	}
	return nil
}

func (f *HumanFormatter) FormatFolders(w io.Writer, folders []filedock.Folder) error {
	if len(folders) == 0 {
		_, _ = fmt.Fprintln(w, "No folders found")
		return nil
	}

	if f.Quiet {
		for i := range folders {
			_, _ = fmt.Fprintln(w, folders[i].ID)
		}
		return nil
	}

	_, _ = fmt.Fprintf(w, "%-36s  %-36s  %s\n", "ID", "PARENT", "NAME")
	for i := range folders {
		parent := "(root)"
		if folders[i].ParentID != nil {
			parent = folders[i].ParentID.String()
		}
		_, _ = fmt.Fprintf(w, "%-36s  %-36s  %s\n", folders[i].ID, parent, folders[i].Name)
	}
	return nil
}

func (f *HumanFormatter) FormatFolder(w io.Writer, folder filedock.Folder) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, folder.ID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Folder: %s (%s)\n", folder.Name, folder.ID)
	return nil
}

func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	maxNameLen := 4 // "NAME"
	for i := range profiles {
		maxNameLen = max(maxNameLen, len(profiles[i].Name))
	}
	maxNameLen = min(maxNameLen, 20)

	_, _ = fmt.Fprintf(w, "  %-*s  %s\n", maxNameLen, "NAME", "ENDPOINT")
	_, _ = fmt.Fprintf(w, "  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 30))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %-*s  %s\n", marker, maxNameLen, truncate(p.Name, maxNameLen), p.Endpoint)
	}

	return nil
}

func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	if profile.Timeout > 0 {
		_, _ = fmt.Fprintf(w, "Timeout:  %s\n", profile.Timeout)
	}
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	type jsonResult struct {
		LocalPath string         `json:"localPath"`
		File      *filedock.File `json:"file,omitempty"`
		Error     string         `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{LocalPath: r.LocalPath}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.File = &r.File
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	type jsonResult struct {
		ID      string `json:"id"`
		Name    string `json:"name,omitempty"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{ID: r.ID, Name: r.Name, Deleted: r.Deleted}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

func (f *JSONFormatter) FormatList(w io.Writer, result *ListResult) error {
	return writeJSON(w, result)
}

func (f *JSONFormatter) FormatInfo(w io.Writer, info filedock.FileInfo) error {
	return writeJSON(w, info)
}

func (f *JSONFormatter) FormatStats(w io.Writer, stats filedock.FileStats) error {
	return writeJSON(w, stats)
}

func (f *JSONFormatter) FormatFolders(w io.Writer, folders []filedock.Folder) error {
	return writeJSON(w, struct {
		Folders []filedock.Folder `json:"folders"`
	}{Folders: folders})
}

func (f *JSONFormatter) FormatFolder(w io.Writer, folder filedock.Folder) error {
	return writeJSON(w, folder)
}

func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Timeout  string `json:"timeout,omitempty"`
		Default  bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		output.Profiles[i] = jsonProfile{
			Name:     profiles[i].Name,
			Endpoint: profiles[i].Endpoint,
			Timeout:  durationString(profiles[i]),
			Default:  profiles[i].Name == defaultName,
		}
	}

	return writeJSON(w, output)
}

func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error {
	output := struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Timeout  string `json:"timeout,omitempty"`
		Default  bool   `json:"default"`
	}{
		Name:     profile.Name,
		Endpoint: profile.Endpoint,
		Timeout:  durationString(profile),
		Default:  isDefault,
	}

	return writeJSON(w, output)
}

func durationString(p Profile) string {
	if p.Timeout <= 0 {
		return ""
	}
	return p.Timeout.String()
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
