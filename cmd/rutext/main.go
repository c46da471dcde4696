package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"rutext/internal/config"
	"rutext/internal/lemma"
	"rutext/internal/morph"
	"rutext/internal/ner"
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	var err error
	switch cmd {
	case "lemmatize":
		err = lemmatizeCommand(args)
	case "annotate":
		err = annotateCommand(args)
	case "ner":
		err = nerCommand(args)
	case "dict":
		err = dictCommand(args)
	case "model":
		err = modelCommand(args)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("rutext %s failed: %v", cmd, err)
	}
}

func usage() {
	fmt.Println("Usage: rutext [lemmatize <word>...|annotate [-window N] <text>|ner <text>|dict build <tsv> <dir>|model list|model info <name>|model download <name>|model remove <name>]")
}

func loadConfig() (config.Config, error) {
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(cfgPath)
}

func openDictionary() (*morph.Dictionary, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	dict, err := morph.Load(cfg.DictDir)
	if err != nil {
		return nil, config.Config{}, err
	}
	return dict, cfg, nil
}

func lemmatizeCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: rutext lemmatize <word>...")
	}
	dict, _, err := openDictionary()
	if err != nil {
		return err
	}
	defer dict.Close()
	resolver := lemma.New(dict)
	lemmas := resolver.ResolveAll(args)
	for _, word := range args {
		if l, ok := lemmas[word]; ok {
			fmt.Printf("%s\t%s\n", word, l)
		} else {
			fmt.Printf("%s\t-\n", word)
		}
	}
	return nil
}

func annotateCommand(args []string) error {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	window := fs.Int("window", -1, "quote window in characters (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	input, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	dict, cfg, err := openDictionary()
	if err != nil {
		return err
	}
	defer dict.Close()
	w := cfg.Window
	if *window >= 0 {
		w = *window
	}
	items := lemma.New(dict).AnnotateText(input, w)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func nerCommand(args []string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}
	dict, cfg, err := openDictionary()
	if err != nil {
		return err
	}
	defer dict.Close()
	loader := ner.NewLoader(ner.Config{Backend: cfg.NER.Backend, ModelDir: cfg.NER.ModelDir}, dict)
	handle, err := loader.Get(context.Background())
	if err != nil {
		return fmt.Errorf("NER init failed: %w", err)
	}
	spans, err := ner.Extract(context.Background(), input, handle)
	if err != nil {
		return fmt.Errorf("NER failed: %w", err)
	}
	for _, sp := range spans {
		fmt.Printf("%s\t%s\t%d:%d\n", sp.Type, sp.Text, sp.Start, sp.End)
	}
	return nil
}

func dictCommand(args []string) error {
	if len(args) != 3 || args[0] != "build" {
		return fmt.Errorf("usage: rutext dict build <forms.tsv> <output-dir>")
	}
	tsvPath, outDir := args[1], args[2]
	f, err := os.Open(tsvPath)
	if err != nil {
		return err
	}
	defer f.Close()
	forms, err := morph.ParseTSV(bufio.NewReader(f))
	if err != nil {
		return err
	}
	if err := morph.Build(forms, outDir); err != nil {
		return err
	}
	fmt.Printf("Compiled %d forms into %s\n", len(forms), outDir)
	return nil
}

// readInput takes the remaining args as the text, or reads stdin when none
// are given.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
