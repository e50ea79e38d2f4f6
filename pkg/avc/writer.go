// Package avc serializes vectors to the HP93000 AVC pattern format and
// parses them back. Alongside every pattern file the writer drops the
// companion wavetable (.wtb) and timing format (.tmf) files the tester needs
// to import the pattern.
package avc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chiplabs/vecgen/pkg/vector"
)

// Config carries the tester-side naming for an AVC export. Zero values fall
// back to the conventional defaults.
type Config struct {
	Port        string // PORT header entry; empty omits the header line
	DeviceCycle string // device cycle name referenced by every vector line
	WTBName     string // wavetable name written to the .wtb companion
}

const (
	defaultDeviceCycle = "dvc_1"
	defaultWTBName     = "Standard ATI"
)

// Writer appends vectors to an AVC pattern file. Vector lines carry the pin
// state characters in sorted logical pin order, matching the FORMAT header.
type Writer struct {
	space *vector.PinSpace
	cfg   Config
	file  *os.File
	buf   *bufio.Writer
}

// NewWriter creates the pattern file, writes its header and generates the
// .wtb and .tmf companions next to it.
func NewWriter(path string, space *vector.PinSpace, cfg Config) (*Writer, error) {
	if cfg.DeviceCycle == "" {
		cfg.DeviceCycle = defaultDeviceCycle
	}
	if cfg.WTBName == "" {
		cfg.WTBName = defaultWTBName
	}
	if err := writeCompanions(path, cfg); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("avc: create %s: %w", path, err)
	}
	w := &Writer{
		space: space,
		cfg:   cfg,
		file:  file,
		buf:   bufio.NewWriter(file),
	}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// WriteVectors appends the given vectors. With compress set, adjacent
// identical vectors are merged first to save tester vector memory.
func (w *Writer) WriteVectors(vecs []vector.Vector, compress bool) error {
	if compress {
		vecs = vector.Compress(vecs)
	}
	return w.emit(vecs)
}

// Close flushes and closes the pattern file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("avc: flush: %w", err)
	}
	return w.file.Close()
}

func (w *Writer) writeHeader() error {
	if w.cfg.Port != "" {
		fmt.Fprintf(w.buf, "PORT %s ;\n", w.cfg.Port)
	}
	physical := make([]string, 0, w.space.Len())
	for _, logical := range w.space.Names() {
		decl, _ := w.space.Decl(logical)
		physical = append(physical, decl.Name)
	}
	_, err := fmt.Fprintf(w.buf, "FORMAT %s ;\n", strings.Join(physical, " "))
	if err != nil {
		return fmt.Errorf("avc: write header: %w", err)
	}
	return nil
}

func (w *Writer) emit(vecs []vector.Vector) error {
	for _, vec := range vecs {
		switch v := vec.(type) {
		case *vector.Normal:
			if err := w.emitNormal(v); err != nil {
				return err
			}
		case *vector.Loop:
			fmt.Fprintf(w.buf, "SQPG LBGN %d ;\n", v.Repeat)
			if err := w.emit(v.Body); err != nil {
				return err
			}
			fmt.Fprintf(w.buf, "SQPG LEND ;\n")
		case *vector.MatchedLoop:
			fmt.Fprintf(w.buf, "SQPG MACT %d ;\n", v.Retries)
			if err := w.emit(v.Cond); err != nil {
				return err
			}
			fmt.Fprintf(w.buf, "SQPG MRPT %d ;\n", vector.Count(v.Idle))
			if err := w.emit(v.Idle); err != nil {
				return err
			}
			fmt.Fprintf(w.buf, "SQPG PADDING ;\n")
		}
	}
	return nil
}

func (w *Writer) emitNormal(v *vector.Normal) error {
	var states strings.Builder
	for _, logical := range w.space.Names() {
		states.WriteByte(v.PinStates[logical])
	}
	line := fmt.Sprintf("R%d %s %s ", v.Repeat, w.cfg.DeviceCycle, states.String())
	if v.Comment != "" {
		line += "[%] " + v.Comment + " "
	}
	if _, err := w.buf.WriteString(line + ";\n"); err != nil {
		return fmt.Errorf("avc: write vector: %w", err)
	}
	return nil
}

// writeCompanions drops the .wtb and .tmf files next to the pattern file.
// The TMF maps the six state characters onto wavetable entries; timing
// itself is tester configuration, not part of the pattern.
func writeCompanions(path string, cfg Config) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.WriteFile(base+".wtb", []byte(cfg.WTBName), 0o644); err != nil {
		return fmt.Errorf("avc: write wavetable: %w", err)
	}
	tmf := fmt.Sprintf("PINS %s\nDDC %s\n0 0\n1 1\nX 2\nL 3\nH 4\nZ 5", cfg.Port, cfg.DeviceCycle)
	if err := os.WriteFile(base+".tmf", []byte(tmf), 0o644); err != nil {
		return fmt.Errorf("avc: write timing format: %w", err)
	}
	return nil
}
