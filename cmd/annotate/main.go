// Command annotate prints the named entities and dates found in a text.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/poiesic/ragprep"
	"github.com/poiesic/ragprep/annotate"
	"github.com/poiesic/ragprep/config"
	"github.com/poiesic/ragprep/internal/cmdutil"
	"github.com/urfave/cli/v2"
)

// demoText is annotated when no input is given.
const demoText = "John Smith was admitted to Lille University Hospital on March 12, 2024."

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	var cfg *config.Config
	return &cli.App{
		Name:      "annotate",
		Usage:     "Extract named entities and dates from a text",
		ArgsUsage: "[text]",
		Flags: cmdutil.Flags(
			cmdutil.GlobalFlags(),
			[]cli.Flag{
				&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Text to annotate"},
				&cli.BoolFlag{Name: "stdin", Usage: "Read the text from standard input"},
			},
			cmdutil.TaggerFlags(),
			cmdutil.EmbeddingFlags(),
		),
		Before: cmdutil.Before(&cfg),
		Action: func(c *cli.Context) error {
			text, err := inputText(c, stdin)
			if err != nil {
				return err
			}
			return run(c.Context, cfg, text, stdout)
		},
	}
}

// inputText picks the text from the arguments, --text, standard input or
// the demo sentence, in that order.
func inputText(c *cli.Context, stdin io.Reader) (string, error) {
	if c.Args().Present() {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if c.IsSet("text") {
		return c.String("text"), nil
	}
	if c.Bool("stdin") || isPiped(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return demoText, nil
}

func isPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice == 0
}

func run(ctx context.Context, cfg *config.Config, text string, stdout io.Writer) error {
	provider, err := ragprep.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create tagging service: %w", err)
	}
	defer provider.Close()

	annotator := ragprep.NewAnnotator(cfg, provider.EntityTagger())
	summary := annotator.Annotate(ctx, text)
	return annotate.Render(stdout, text, summary)
}
