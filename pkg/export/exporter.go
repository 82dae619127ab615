package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rfm-segments/pkg/models"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// TargetHeader est l'en-tête de la colonne unique du fichier de cibles.
const TargetHeader = "master_id"

// WriteTargets écrit une colonne master_id, une ligne par client, ordre conservé.
func WriteTargets(w io.Writer, ids []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{TargetHeader}); err != nil {
		return err
	}
	for _, id := range ids {
		if err := cw.Write([]string{id}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTargetsFile(path string, ids []string) error {
	return writeFile(path, func(w io.Writer) error { return WriteTargets(w, ids) })
}

// WriteReport exporte le rapport en YAML (.yaml/.yml) ou JSON (autres extensions).
func WriteReport(path string, report models.Report) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return writeFile(path, func(w io.Writer) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to write YAML: %w", err)
			}
			return enc.Close()
		})
	default:
		return writeFile(path, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to write JSON: %w", err)
			}
			return nil
		})
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	// Make sure the folder exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	log.WithField("path", path).Info("exported")
	return nil
}
