package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		scriptFile   string
		recording    string
		voice        string
		captions     bool
		captionStyle string
		music        bool
		mood         string
		aspectRatio  string
	)

	cmd := &cobra.Command{
		Use:   "submit [script text]",
		Short: "Queue a script for video generation",
		Long: "Queue a script for video generation. The script comes from the argument,\n" +
			"from --file, or from stdin when --file is '-'.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := resolveScript(args, scriptFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			req := api.SubmitRequest{
				Script: script,
				Options: api.JobOptions{
					Voice:        voice,
					Captions:     captions,
					CaptionStyle: captionStyle,
					Music:        music,
					Mood:         mood,
					AspectRatio:  aspectRatio,
				},
			}

			var resp api.SubmitResponse
			if strings.TrimSpace(recording) != "" {
				resp, err = client.SubmitWithRecording(cmd.Context(), req, recording)
			} else {
				resp, err = client.Submit(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (%s)\n", resp.JobID, resp.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Read the script from a file ('-' for stdin)")
	cmd.Flags().StringVarP(&recording, "recording", "r", "", "Upload a narration recording instead of synthesizing")
	cmd.Flags().StringVar(&voice, "voice", "", "Narration voice")
	cmd.Flags().BoolVar(&captions, "captions", true, "Burn in captions")
	cmd.Flags().StringVar(&captionStyle, "caption-style", "", "Caption style name")
	cmd.Flags().BoolVar(&music, "music", true, "Mix in background music")
	cmd.Flags().StringVar(&mood, "mood", "", "Override the detected mood")
	cmd.Flags().StringVar(&aspectRatio, "aspect-ratio", "", "Output aspect ratio (e.g. 9:16)")
	return cmd
}

func resolveScript(args []string, scriptFile string, stdin io.Reader) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}

	source := strings.TrimSpace(scriptFile)
	if source == "" {
		return "", fmt.Errorf("script is required: pass it as an argument or via --file")
	}

	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	script := strings.TrimSpace(string(data))
	if script == "" {
		return "", fmt.Errorf("script source %q is empty", source)
	}
	return script, nil
}
