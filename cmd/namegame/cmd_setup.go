package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nvandessel/namegame/internal/setup"
	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install llama.cpp libraries and a GGUF model for local runs",
		Long: `Download the llama.cpp shared libraries and a chat model so the
"local" provider works without further configuration.

Files go to ~/.namegame/lib and ~/.namegame/models (or --dir). Runs with
provider "local" pick them up when llm.local.lib_path or model_path are unset.

Examples:
  namegame setup                      # Libraries and the default model
  namegame setup --check              # Report what is installed
  namegame setup --skip-libs --model-url https://.../model.gguf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			check, _ := cmd.Flags().GetBool("check")
			skipLibs, _ := cmd.Flags().GetBool("skip-libs")
			skipModel, _ := cmd.Flags().GetBool("skip-model")
			modelURL, _ := cmd.Flags().GetString("model-url")

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				var err error
				if dir, err = setup.DefaultDir(); err != nil {
					return err
				}
			}

			if !check {
				installed := setup.DetectInstalled(dir)
				if !skipLibs && installed.LibPath == "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "Downloading llama.cpp libraries...")
					if err := setup.DownloadLibraries(cmd.Context(), filepath.Join(dir, "lib")); err != nil {
						return fmt.Errorf("failed to download libraries: %w", err)
					}
				}
				if !skipModel && (installed.ModelPath == "" || cmd.Flags().Changed("model-url")) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Downloading model...")
					if err := setup.DownloadModel(cmd.Context(), modelURL, filepath.Join(dir, "models")); err != nil {
						return fmt.Errorf("failed to download model: %w", err)
					}
				}
			}

			result := setup.DetectInstalled(dir)
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"lib_path":   result.LibPath,
					"model_path": result.ModelPath,
					"available":  result.Available,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lib:   %s\n", orMissing(result.LibPath))
			fmt.Fprintf(cmd.OutOrStdout(), "model: %s\n", orMissing(result.ModelPath))
			if !result.Available {
				return fmt.Errorf("local model setup incomplete in %s", dir)
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Install directory (default ~/.namegame)")
	cmd.Flags().String("model-url", setup.DefaultModelURL, "GGUF model to download")
	cmd.Flags().Bool("skip-libs", false, "Do not download llama.cpp libraries")
	cmd.Flags().Bool("skip-model", false, "Do not download a model")
	cmd.Flags().Bool("check", false, "Only report what is installed")

	return cmd
}

func orMissing(path string) string {
	if path == "" {
		return "(missing)"
	}
	return path
}
