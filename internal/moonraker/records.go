package moonraker

import "github.com/tidwall/gjson"

// ServerInfo mirrors the connection-level fields of the server.info result.
type ServerInfo struct {
	KlippyConnected  bool
	KlippyState      KlippyState
	MoonrakerVersion string
}

// NewServerInfo returns the record in its never-observed shape: klippy
// disconnected and in the error state.
func NewServerInfo() ServerInfo {
	return ServerInfo{
		KlippyConnected: false,
		KlippyState:     KlippyStateError,
	}
}

// Apply folds the recognized fields present in res into the record.
// Missing or mistyped fields keep their current values.
func (s *ServerInfo) Apply(res gjson.Result) {
	if v := res.Get("klippy_connected"); v.IsBool() {
		s.KlippyConnected = v.Bool()
	}
	if v, ok := stringField(res, "klippy_state"); ok {
		s.KlippyState = KlippyState(v)
	}
	if v, ok := stringField(res, "moonraker_version"); ok {
		s.MoonrakerVersion = v
	}
}

// PrintStats mirrors the print_stats printer object. Filename is nil until
// a job has been observed; the remote reports null between jobs.
type PrintStats struct {
	Filename *string
	State    PrintState
}

// NewPrintStats returns the record in its never-observed shape: no
// filename and the error state.
func NewPrintStats() PrintStats {
	return PrintStats{
		Filename: nil,
		State:    PrintStateError,
	}
}

// Apply folds the recognized fields present in res into the record.
// Missing or mistyped fields keep their current values; an explicit null
// filename clears it.
func (p *PrintStats) Apply(res gjson.Result) {
	applyOptionalString(res, "filename", &p.Filename)
	if v, ok := stringField(res, "state"); ok {
		p.State = PrintState(v)
	}
}

// Clone returns a deep copy safe for the caller to retain.
func (p PrintStats) Clone() PrintStats {
	out := p
	if p.Filename != nil {
		filename := *p.Filename
		out.Filename = &filename
	}
	return out
}

// DisplayStatus mirrors the display_status printer object. Message is nil
// until a display message has been observed.
type DisplayStatus struct {
	Message *string
}

// NewDisplayStatus returns the record in its never-observed shape.
func NewDisplayStatus() DisplayStatus {
	return DisplayStatus{Message: nil}
}

// Apply folds the recognized fields present in res into the record.
func (d *DisplayStatus) Apply(res gjson.Result) {
	applyOptionalString(res, "message", &d.Message)
}

// Clone returns a deep copy safe for the caller to retain.
func (d DisplayStatus) Clone() DisplayStatus {
	out := d
	if d.Message != nil {
		message := *d.Message
		out.Message = &message
	}
	return out
}

// VirtualSDCard mirrors the virtual_sdcard printer object. Progress is a
// fraction between 0 and 1.
type VirtualSDCard struct {
	Progress float64
}

// NewVirtualSDCard returns the record in its never-observed shape.
func NewVirtualSDCard() VirtualSDCard {
	return VirtualSDCard{Progress: 0}
}

// Apply folds the recognized fields present in res into the record.
func (v *VirtualSDCard) Apply(res gjson.Result) {
	if f := res.Get("progress"); f.Type == gjson.Number {
		v.Progress = f.Float()
	}
}

// FileMetadata mirrors the slicer metadata reported by
// server.files.metadata for the file of the current print job.
type FileMetadata struct {
	Size          int64
	Slicer        string
	EstimatedTime float64
	FilamentTotal float64
}

// NewFileMetadata returns the record in its never-observed shape.
func NewFileMetadata() FileMetadata {
	return FileMetadata{}
}

// Apply folds the recognized fields present in res into the record.
func (m *FileMetadata) Apply(res gjson.Result) {
	if v := res.Get("size"); v.Type == gjson.Number {
		m.Size = v.Int()
	}
	if v, ok := stringField(res, "slicer"); ok {
		m.Slicer = v
	}
	if v := res.Get("estimated_time"); v.Type == gjson.Number {
		m.EstimatedTime = v.Float()
	}
	if v := res.Get("filament_total"); v.Type == gjson.Number {
		m.FilamentTotal = v.Float()
	}
}

// stringField returns the string at path when it exists and is a string.
func stringField(res gjson.Result, path string) (string, bool) {
	v := res.Get(path)
	if v.Type != gjson.String {
		return "", false
	}
	return v.String(), true
}

// applyOptionalString updates an optional text field: a string value sets
// it, an explicit null clears it, anything else leaves it unchanged.
func applyOptionalString(res gjson.Result, path string, field **string) {
	v := res.Get(path)
	switch v.Type {
	case gjson.String:
		s := v.String()
		*field = &s
	case gjson.Null:
		// Absent paths also report Null; only an explicit null clears
		if v.Exists() {
			*field = nil
		}
	}
}
