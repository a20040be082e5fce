package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultConvertTimeout = 60 * time.Second

// resolveBinaryPath finds the full path to the binary
func resolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

// commandRunner executes one converter binary with a timeout
type commandRunner struct {
	name    string
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

func newCommandRunner(name, binary, fallback string, timeout time.Duration, logger *zap.Logger) (*commandRunner, error) {
	if binary == "" {
		binary = fallback
	}
	resolved, err := resolveBinaryPath(binary)
	if err != nil {
		return nil, NewRenderError(ErrCodeBinaryNotFound,
			fmt.Sprintf("%s binary not found: %s", name, binary), err)
	}
	if timeout <= 0 {
		timeout = defaultConvertTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &commandRunner{
		name:    name,
		binary:  resolved,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *commandRunner) run(ctx context.Context, dir string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("executing converter",
		zap.String("converter", c.name),
		zap.String("binary", c.binary),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir
	// converters fork helpers that may hold the output pipes after a kill
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("%s conversion timed out after %v", c.name, c.timeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return NewRenderError(ErrCodeRenderTimeout, c.name+" conversion was cancelled", err)
		}

		c.logger.Error("converter failed",
			zap.String("converter", c.name),
			zap.Error(err),
			zap.String("stderr", stderr.String()),
			zap.String("stdout", stdout.String()))

		return NewRenderError(ErrCodeRenderFailed,
			c.name+" execution failed: "+strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// requireOutput checks that a converter actually produced a file
func requireOutput(name, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return NewRenderError(ErrCodeRenderFailed, name+" produced no output", err)
	}
	if info.Size() == 0 {
		return NewRenderError(ErrCodeRenderFailed, name+" produced an empty file", nil)
	}
	return nil
}

// PandocConfig contains configuration for the pandoc converter
type PandocConfig struct {
	// BinaryPath is the pandoc binary; if empty, pandoc is searched in PATH
	BinaryPath string
	// PDFEngine is passed as --pdf-engine when set (e.g. xelatex)
	PDFEngine string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// PandocConverter converts DOCX to PDF with pandoc
type PandocConverter struct {
	runner    *commandRunner
	pdfEngine string
}

// NewPandocConverter creates a pandoc converter, failing when the binary is missing
func NewPandocConverter(config *PandocConfig) (*PandocConverter, error) {
	if config == nil {
		config = &PandocConfig{}
	}
	runner, err := newCommandRunner("pandoc", config.BinaryPath, "pandoc", config.Timeout, config.Logger)
	if err != nil {
		return nil, err
	}
	return &PandocConverter{runner: runner, pdfEngine: config.PDFEngine}, nil
}

// Name implements DocumentConverter
func (c *PandocConverter) Name() string { return "pandoc" }

// Convert implements DocumentConverter
func (c *PandocConverter) Convert(ctx context.Context, docxPath, pdfPath string) error {
	args := []string{docxPath, "-o", pdfPath}
	if c.pdfEngine != "" {
		args = append(args, "--pdf-engine="+c.pdfEngine)
	}
	if err := c.runner.run(ctx, filepath.Dir(docxPath), args...); err != nil {
		return err
	}
	return requireOutput(c.Name(), pdfPath)
}

// SofficeConfig contains configuration for the LibreOffice converter
type SofficeConfig struct {
	// BinaryPath is the soffice binary; if empty, soffice is searched in PATH
	BinaryPath string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// SofficeConverter converts DOCX to PDF with headless LibreOffice
type SofficeConverter struct {
	runner *commandRunner
}

// NewSofficeConverter creates a LibreOffice converter, failing when the binary is missing
func NewSofficeConverter(config *SofficeConfig) (*SofficeConverter, error) {
	if config == nil {
		config = &SofficeConfig{}
	}
	runner, err := newCommandRunner("soffice", config.BinaryPath, "soffice", config.Timeout, config.Logger)
	if err != nil {
		return nil, err
	}
	return &SofficeConverter{runner: runner}, nil
}

// Name implements DocumentConverter
func (c *SofficeConverter) Name() string { return "soffice" }

// Convert implements DocumentConverter. soffice names its output after
// the input file, so the result is moved to pdfPath afterwards. Each call
// gets a throwaway profile directory.
func (c *SofficeConverter) Convert(ctx context.Context, docxPath, pdfPath string) error {
	outDir := filepath.Dir(pdfPath)
	profile := filepath.Join(outDir, ".soffice-profile")
	defer os.RemoveAll(profile)

	err := c.runner.run(ctx, outDir,
		"-env:UserInstallation=file://"+filepath.ToSlash(profile),
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		docxPath,
	)
	if err != nil {
		return err
	}

	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))+".pdf")
	if err := requireOutput(c.Name(), produced); err != nil {
		return err
	}
	if produced != pdfPath {
		if err := os.Rename(produced, pdfPath); err != nil {
			return NewRenderError(ErrCodeRenderFailed, "failed to move soffice output", err)
		}
	}
	return nil
}

var (
	_ DocumentConverter = (*PandocConverter)(nil)
	_ DocumentConverter = (*SofficeConverter)(nil)
)
