// Package main is the entry point for the msd2midi CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/msd2midi/pkg/api"
	"github.com/james-see/msd2midi/pkg/converter"
	"github.com/james-see/msd2midi/pkg/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile string
	loopMode   string
	strict     bool
	verify     bool
	verbose    bool
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "msd2midi",
	Short: "Convert F&C MSD game music to standard MIDI files",
	Long: `msd2midi converts the MSD music sequence format, used by a family of
F&C Windows games, into standard MIDI files (SMF format 0).

Loop points found in the sequence are marked either with loopStart/loopEnd
marker meta-events or with a CC#111 message, depending on --loop.

Examples:
  msd2midi convert bgm01.msd -o bgm01.mid
  msd2midi convert bgm01.msd --loop cc
  msd2midi batch ./bgm
  msd2midi info bgm01.msd
  msd2midi tui
  msd2midi serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			l, err := zap.NewDevelopment()
			if err == nil {
				converter.SetLogger(l)
			}
		}
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.msd>",
	Short: "Convert an MSD file to MIDI",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Convert every .msd file in a directory",
	Long:  `Converts every *.msd file in the directory to a .mid file next to it, continuing past failures.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Inspect the structure of an MSD or MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&loopMode, "loop", "l", "meta", "Loop marker mode: meta or cc")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Fail on truncated data instead of tolerating it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	convertCmd.Flags().BoolVar(&verify, "verify", false, "Read the output back and report its contents")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getConverter() (*converter.Converter, error) {
	loop, err := converter.ParseLoopMode(loopMode)
	if err != nil {
		return nil, err
	}
	return converter.New(converter.Options{Loop: loop, Strict: strict}), nil
}

func getOutputPath(input string) string {
	if outputFile != "" {
		return outputFile
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".mid"
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input)

	conv, err := getConverter()
	if err != nil {
		return err
	}

	if err := conv.ConvertFile(input, output); err != nil {
		return err
	}
	fmt.Printf("Converted %s -> %s\n", input, output)

	if verify {
		data, err := os.ReadFile(output)
		if err != nil {
			return err
		}
		sum, err := converter.SummarizeMIDI(data)
		if err != nil {
			return fmt.Errorf("output failed verification: %w", err)
		}
		printSummary(sum)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	conv, err := getConverter()
	if err != nil {
		return err
	}

	results, err := conv.ConvertDir(args[0])
	if err != nil {
		return err
	}

	failed := 0
	for i, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("%d: %s ... ERROR: %v\n", i+1, res.Input, res.Err)
			continue
		}
		fmt.Printf("%d: %s -> %s ... OK\n", i+1, res.Input, res.Output)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	switch converter.DetectFormatFromContent(data) {
	case converter.FormatMSD:
		info, err := converter.InspectMSD(data)
		if err != nil {
			return err
		}
		printMSDInfo(info)
	case converter.FormatMIDI:
		sum, err := converter.SummarizeMIDI(data)
		if err != nil {
			return err
		}
		printSummary(sum)
	default:
		return fmt.Errorf("%s: unrecognized file format", args[0])
	}
	return nil
}

func printMSDInfo(info *converter.MSDInfo) {
	fmt.Printf("Timebase:  %d\n", info.Timebase)
	fmt.Printf("Packets:   %d declared, %d parsed\n", info.DeclaredPackets, info.ParsedPackets)
	if info.Truncated {
		fmt.Println("Warning:   stream truncated before the declared packet count")
	}
	if info.LoopPacket >= 0 {
		fmt.Printf("Loop:      packet %d (id %d)\n", info.LoopPacket, info.LoopAnchor)
	} else {
		fmt.Println("Loop:      none")
	}
	fmt.Println()
	fmt.Println("  idx        id   next id   payload    events")
	for i, p := range info.Packets {
		fmt.Printf("  %3d  %8d  %8d  %8d  %8d\n", i, p.ID, p.NextID, p.PayloadLen, p.Events)
	}
}

func printSummary(sum *converter.MIDISummary) {
	fmt.Printf("Format:    %d\n", sum.Format)
	fmt.Printf("Tracks:    %d\n", sum.NumTracks)
	fmt.Printf("Division:  %d ticks/quarter\n", sum.TicksPerQuarter)
	fmt.Printf("Events:    %d (%d tempo changes, %d sysex)\n", sum.Events, sum.TempoChanges, sum.SysExEvents)
	fmt.Printf("Length:    %d ticks\n", sum.TotalTicks)
	if len(sum.Markers) > 0 {
		fmt.Printf("Markers:   %s\n", strings.Join(sum.Markers, ", "))
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
