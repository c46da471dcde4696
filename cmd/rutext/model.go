package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rutext/internal/models"
	"rutext/internal/morph"
	"rutext/internal/ner"
)

func modelCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: rutext model [list|download|info|remove|verify]")
	}
	registry, err := models.LoadEmbeddedRegistry()
	if err != nil {
		return err
	}
	root, err := models.DefaultModelsRoot()
	if err != nil {
		return err
	}
	sub := args[0]
	subArgs := args[1:]
	switch sub {
	case "list":
		return modelList(registry, root)
	case "info":
		if len(subArgs) != 1 {
			return fmt.Errorf("usage: rutext model info <name>")
		}
		return modelInfo(registry, root, subArgs[0])
	case "download":
		return modelDownload(registry, root, subArgs)
	case "remove":
		if len(subArgs) != 1 {
			return fmt.Errorf("usage: rutext model remove <name>")
		}
		return modelRemove(registry, root, subArgs[0])
	case "verify":
		return modelVerify(registry, root)
	default:
		return fmt.Errorf("unknown model subcommand %q", sub)
	}
}

func modelList(registry models.Registry, root string) error {
	fmt.Println("Available Artifacts")
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("%-22s %-6s %-6s %-8s %-14s %-16s\n", "NAME", "KIND", "LANG", "SIZE", "STATUS", "TYPES")
	fmt.Println(strings.Repeat("-", 80))
	installed := 0
	var totalSize int64
	for _, m := range registry.Models {
		status := "not installed"
		if models.IsInstalled(root, m) {
			status = "installed"
			installed++
			totalSize += m.SizeBytes
		}
		fmt.Printf("%-22s %-6s %-6s %-8s %-14s %-16s\n", m.Name, m.Kind, m.Language, humanBytes(m.SizeBytes), status, strings.Join(m.EntityTypes, ", "))
	}
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Installed: %d/%d artifacts\n", installed, len(registry.Models))
	fmt.Printf("Total size: %s\n", humanBytes(totalSize))
	fmt.Println("\nTip: Use 'rutext model download <name>' to install an artifact")
	return nil
}

func modelInfo(registry models.Registry, root, name string) error {
	m, ok := registry.Find(name)
	if !ok {
		return fmt.Errorf("model %q not found", name)
	}
	status := "Not installed"
	location := models.ModelInstallPath(root, m.Name)
	if models.IsInstalled(root, m) {
		status = "Installed"
	}
	fmt.Printf("Artifact: %s\n", m.Name)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Status:         %s\n", status)
	fmt.Printf("Kind:           %s\n", m.Kind)
	fmt.Printf("Version:        %s\n", m.Version)
	fmt.Printf("Language:       %s\n", m.Language)
	fmt.Printf("Size:           %s\n", humanBytes(m.SizeBytes))
	fmt.Printf("Location:       %s\n", location)
	fmt.Printf("Description:    %s\n", m.Description)
	if len(m.EntityTypes) > 0 {
		fmt.Printf("Entity Types:   %s\n", strings.Join(m.EntityTypes, ", "))
	}
	fmt.Printf("License:        %s\n", m.License)
	fmt.Printf("URL:            %s\n", m.URL)
	fmt.Printf("Checksum:       %s\n", m.Checksum)
	return nil
}

func modelDownload(registry models.Registry, root string, args []string) error {
	fs := flag.NewFlagSet("model download", flag.ContinueOnError)
	all := fs.Bool("all", false, "download all recommended artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	selected := make([]models.ModelSpec, 0)
	if *all {
		for _, m := range registry.Models {
			if m.Recommended {
				selected = append(selected, m)
			}
		}
	} else {
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: rutext model download <name> or rutext model download --all")
		}
		m, ok := registry.Find(fs.Arg(0))
		if !ok {
			return fmt.Errorf("model %q not found", fs.Arg(0))
		}
		selected = append(selected, m)
	}
	dl := models.NewDownloader()
	for _, m := range selected {
		fmt.Printf("\nDownloading %s v%s\n", m.Name, m.Version)
		fmt.Printf("Source: %s\n\n", m.URL)
		lastUpdate := time.Time{}
		err := dl.DownloadAndInstall(context.Background(), m, root, func(p models.Progress) {
			if time.Since(lastUpdate) < 120*time.Millisecond && p.Total > 0 {
				return
			}
			lastUpdate = time.Now()
			pct := float64(0)
			if p.Total > 0 {
				pct = float64(p.Downloaded) * 100 / float64(p.Total)
			}
			fmt.Printf("\rDownloading... %6.2f%% | %s / %s | %.2f MB/s | ETA %s", pct, humanBytes(p.Downloaded), humanBytes(p.Total), p.SpeedMBps, p.ETA.Truncate(time.Second))
		})
		fmt.Println()
		if err != nil {
			return err
		}
		fmt.Println("Verifying checksum... ✓")
		fmt.Println("Extracting... ✓")
		if err := validateArtifactLoads(m, filepath.Join(root, m.Name)); err != nil {
			return fmt.Errorf("validate artifact: %w", err)
		}
		fmt.Println("Validating... ✓")
		fmt.Printf("\n✓ %s installed successfully\n", m.Name)
	}
	return nil
}

// validateArtifactLoads opens the freshly installed artifact the way the
// daemon would, so a broken archive fails at install time rather than on the
// first request.
func validateArtifactLoads(m models.ModelSpec, dir string) error {
	if m.Kind == models.KindDict {
		d, err := morph.Open(dir)
		if err != nil {
			return err
		}
		defer d.Close()
		_, err = d.Parse("кошки")
		return err
	}
	dict, err := morph.NewEmbedded()
	if err != nil {
		return err
	}
	loader := ner.NewLoader(ner.Config{Backend: "onnx", ModelDir: dir}, dict)
	if _, err := loader.Get(context.Background()); err != nil {
		return err
	}
	return nil
}

func modelRemove(registry models.Registry, root, name string) error {
	m, ok := registry.Find(name)
	if !ok {
		return fmt.Errorf("model %q not found", name)
	}
	loc := models.ModelInstallPath(root, m.Name)
	if _, err := os.Stat(loc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Artifact %s is not installed\n", name)
			return nil
		}
		return err
	}
	fmt.Printf("Remove artifact '%s' (%s)?\n", m.Name, humanBytes(m.SizeBytes))
	fmt.Printf("This will delete %s\n\n", loc)
	fmt.Print("Continue? (y/N): ")
	r := bufio.NewReader(os.Stdin)
	resp, _ := r.ReadString('\n')
	resp = strings.TrimSpace(strings.ToLower(resp))
	if resp != "y" && resp != "yes" {
		fmt.Println("Cancelled")
		return nil
	}
	if err := os.RemoveAll(loc); err != nil {
		return err
	}
	fmt.Printf("Artifact %s removed successfully\n", m.Name)
	return nil
}

func modelVerify(registry models.Registry, root string) error {
	fmt.Println("Verifying installed artifacts...")
	installed := 0
	failures := 0
	for _, m := range registry.Models {
		if !models.IsInstalled(root, m) {
			continue
		}
		installed++
		fmt.Printf("\n%s\n", m.Name)
		dir := filepath.Join(root, m.Name)
		if data, err := os.ReadFile(filepath.Join(dir, ".checksum")); err == nil {
			expected := strings.TrimSpace(string(data))
			if expected == m.Checksum {
				fmt.Println("  ├─ Checksum... ✓")
			} else {
				fmt.Println("  ├─ Checksum... ✗ (registry mismatch)")
				failures++
			}
		} else {
			fmt.Println("  ├─ Checksum... ? (metadata unavailable)")
		}
		if err := models.ValidateModelDir(dir, m.RequiredFiles()); err != nil {
			fmt.Printf("  ├─ Files...    ✗ (%v)\n", err)
			failures++
			continue
		}
		fmt.Println("  ├─ Files...    ✓")
		if err := validateArtifactLoads(m, dir); err != nil {
			fmt.Printf("  └─ Loadable... ✗ (%v)\n", err)
			failures++
			continue
		}
		fmt.Println("  └─ Loadable... ✓")
	}
	if installed == 0 {
		fmt.Println("\nNo installed artifacts found")
		return nil
	}
	if failures > 0 {
		return fmt.Errorf("%d artifact(s) failed verification", failures)
	}
	fmt.Println("\nAll artifacts verified")
	return nil
}

func humanBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d KB", n/1024)
}
