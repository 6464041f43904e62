// Package latex renders question content to PNG images by compiling a LaTeX
// document with pdflatex and rasterizing the first page with pdftocairo.
package latex

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/server/render"
)

// Config holds the LaTeX toolchain configuration.
type Config struct {
	// PDFLatexPath is the path to the pdflatex executable.
	PDFLatexPath string
	// PDFToCairoPath is the path to the pdftocairo executable.
	PDFToCairoPath string
	// DPI is the rasterization resolution.
	DPI int
}

// DefaultConfig returns the default toolchain configuration.
func DefaultConfig() *Config {
	return &Config{
		PDFLatexPath:   "pdflatex",
		PDFToCairoPath: "pdftocairo",
		DPI:            300,
	}
}

// Client compiles question content into PNG artifacts. It implements
// render.Renderer.
type Client struct {
	config *Config
}

// NewClient creates a new LaTeX rendering client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DPI <= 0 {
		config.DPI = 300
	}
	return &Client{config: config}
}

// Validate checks that pdflatex and pdftocairo are installed and runnable.
// Called once at startup so a missing toolchain fails fast instead of on the
// first render.
func (c *Client) Validate(ctx context.Context) error {
	if err := exec.CommandContext(ctx, c.config.PDFLatexPath, "-version").Run(); err != nil {
		return errors.Wrapf(err, "pdflatex not available at %q", c.config.PDFLatexPath)
	}
	if err := exec.CommandContext(ctx, c.config.PDFToCairoPath, "-v").Run(); err != nil {
		return errors.Wrapf(err, "pdftocairo not available at %q", c.config.PDFToCairoPath)
	}
	slog.Info("latex rendering environment validated",
		"pdflatex", c.config.PDFLatexPath,
		"pdftocairo", c.config.PDFToCairoPath,
	)
	return nil
}

// Render compiles the content into a single PNG containing the question,
// its options, and the explanation when present.
func (c *Client) Render(ctx context.Context, content render.Content) ([]byte, error) {
	doc := buildDocument(content)

	tmpDir, err := os.MkdirTemp("", "latex_render_*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tmpDir)

	texPath := filepath.Join(tmpDir, "question.tex")
	if err := os.WriteFile(texPath, []byte(doc), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write tex file")
	}

	// pdflatex writes question.pdf next to the tex file.
	cmd := exec.CommandContext(ctx, c.config.PDFLatexPath,
		"-interaction=nonstopmode",
		"-output-directory", tmpDir,
		texPath,
	)
	cmd.Dir = tmpDir
	var compileOut bytes.Buffer
	cmd.Stdout = &compileOut
	cmd.Stderr = &compileOut
	if err := cmd.Run(); err != nil {
		slog.Warn("pdflatex compilation failed", "error", err, "log", tailString(compileOut.String(), 2000))
		return nil, errors.Wrap(err, "pdflatex compilation failed")
	}

	pdfPath := filepath.Join(tmpDir, "question.pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, errors.New("pdflatex exited successfully but produced no PDF")
	}

	// pdftocairo -singlefile writes <prefix>.png without a page suffix.
	pngPrefix := filepath.Join(tmpDir, "question")
	cmd = exec.CommandContext(ctx, c.config.PDFToCairoPath,
		"-png", "-singlefile",
		"-r", fmt.Sprintf("%d", c.config.DPI),
		pdfPath, pngPrefix,
	)
	var rasterOut bytes.Buffer
	cmd.Stdout = &rasterOut
	cmd.Stderr = &rasterOut
	if err := cmd.Run(); err != nil {
		slog.Warn("pdftocairo rasterization failed", "error", err, "log", rasterOut.String())
		return nil, errors.Wrap(err, "pdftocairo rasterization failed")
	}

	image, err := os.ReadFile(pngPrefix + ".png")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rendered image")
	}
	return image, nil
}

func tailString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

const documentHeader = `\documentclass[16pt, border=10pt]{standalone}
\usepackage[utf8]{inputenc}
\usepackage[T1]{fontenc}
\usepackage{amsmath}
\usepackage{amsfonts}
\usepackage{amssymb}
\usepackage{enumitem}
\usepackage{xcolor}
\usepackage[most]{tcolorbox}
\usepackage{varwidth}
\usepackage{listings}
\usepackage{textcomp}
\usepackage{newunicodechar}
\newunicodechar{∫}{\ensuremath{\int}}
\newunicodechar{√}{\ensuremath{\sqrt}}
\newunicodechar{≠}{\ensuremath{\neq}}
\newunicodechar{≤}{\ensuremath{\leq}}
\newunicodechar{≥}{\ensuremath{\geq}}
\newunicodechar{×}{\ensuremath{\times}}
\newunicodechar{÷}{\ensuremath{\div}}
\newunicodechar{π}{\ensuremath{\pi}}
\newunicodechar{θ}{\ensuremath{\theta}}
\newunicodechar{²}{\ensuremath{^2}}
\newunicodechar{³}{\ensuremath{^3}}
\lstset{
    basicstyle=\small\ttfamily,
    breaklines=true,
    showspaces=false,
    showstringspaces=false,
    showtabs=false,
    frame=single,
    rulecolor=\color{black!30},
    backgroundcolor=\color{gray!10},
    keywordstyle=\color{blue}\bfseries,
    commentstyle=\color{green!60!black},
    stringstyle=\color{red},
    aboveskip=10pt,
    belowskip=10pt
}
\definecolor{questionbg}{rgb}{0.95, 0.95, 0.98}
\definecolor{explainbg}{rgb}{0.95, 0.98, 0.95}
`

// buildDocument assembles the full LaTeX source for a question card.
func buildDocument(content render.Content) string {
	var body strings.Builder

	body.WriteString("\\begin{document}\n\\begin{varwidth}{0.9\\textwidth}\n")
	body.WriteString("\\begin{tcolorbox}[colback=questionbg, colframe=black!50!blue, title=Question]\n")
	body.WriteString(EscapeText(content.Text))
	body.WriteString("\n\\end{tcolorbox}\n\\vspace{0.3cm}\n\\textbf{Options:}\\\\\n")

	options := make([]string, len(content.Options))
	for i, opt := range content.Options {
		options[i] = fmt.Sprintf("\\textbf{%c}) %s", 'A'+i, EscapeText(opt))
	}
	body.WriteString(strings.Join(options, " \\\\ "))
	body.WriteString("\n")

	if content.Explanation != "" {
		body.WriteString("\\vspace{0.3cm}\n")
		body.WriteString("\\begin{tcolorbox}[colback=explainbg, colframe=blue!50!black, title=Explanation]\n")
		body.WriteString(EscapeText(content.Explanation))
		body.WriteString("\n\\end{tcolorbox}\n")
	}

	body.WriteString("\\end{varwidth}\n\\end{document}\n")
	return documentHeader + body.String()
}
