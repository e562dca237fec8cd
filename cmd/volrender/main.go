package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/liangfu/volrender/internal/models"
	"github.com/liangfu/volrender/pkg/config"
	"github.com/liangfu/volrender/pkg/pipeline"
)

func main() {
	flags := flag.NewFlagSet("volrender", flag.ContinueOnError)
	flags.Usage = func() { printUsage(flags) }

	configPath := flags.String("config", "", "YAML configuration file")
	writeConfig := flags.String("write-config", "", "Write the default configuration to this file and exit")
	fileName := flags.String("file", "", "MetaImage volume (.mha or .mhd)")
	dirName := flags.String("dir", "", "Directory of numbered slice images")
	sliceGap := flags.Float64("slice-gap", 1.0, "Slice spacing for a slice directory")
	preset := flags.String("preset", "jet", "Transfer function preset (jet, ct-skin, ct-bone, mip, composite-ramp or none)")
	frameRate := flags.Float64("frame-rate", config.DefaultFrameRate, "Desired update rate in frames per second (0.01 to 60.0)")
	reduction := flags.Float64("reduction", config.NoReduction, "Reduce the volume by this factor before rendering (between 0 and 1, exclusive)")
	dependent := flags.Bool("dependent-components", false, "Classify multi-component voxels jointly")
	sampleDistance := flags.Float64("sample-distance", 0, "Ray step length; 0 uses half the mean spacing")
	termination := flags.Float64("termination", config.DefaultTermination, "Early ray termination opacity")
	width := flags.Int("width", 600, "Render window width")
	height := flags.Int("height", 600, "Render window height")
	outputDir := flags.String("output", "", "Frame directory (default: the input's parent directory)")
	format := flags.String("format", "png", "Frame image format: png, jpeg, tiff or bmp")
	workers := flags.Int("workers", runtime.NumCPU(), "Number of goroutines rendering each frame")
	quiet := flags.Bool("quiet", false, "Only log warnings and errors")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Unrecognized option: %s\n\n", flags.Arg(0))
		printUsage(flags)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	level := slog.LevelInfo
	if *quiet {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.ReadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			printUsage(flags)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Explicit flags override the config file.
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file":
			cfg.Source.FileName = *fileName
		case "dir":
			cfg.Source.Directory = *dirName
		case "slice-gap":
			cfg.Source.SliceGap = *sliceGap
		case "preset":
			cfg.Render.PresetName = *preset
		case "frame-rate":
			cfg.Render.FrameRate = *frameRate
		case "reduction":
			cfg.Render.ReductionFactor = *reduction
		case "dependent-components":
			cfg.Render.IndependentComponents = !*dependent
		case "sample-distance":
			cfg.Render.SampleDistance = *sampleDistance
		case "termination":
			cfg.Render.Termination = *termination
		case "width":
			cfg.Render.Width = *width
		case "height":
			cfg.Render.Height = *height
		case "output":
			cfg.Output.Directory = *outputDir
		case "format":
			cfg.Output.Format = *format
		case "workers":
			cfg.Processing.Workers = *workers
		case "quiet":
			cfg.Output.Verbose = !*quiet
		}
	})

	if err := cfg.Validate(logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(flags)
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("VOLUME RAY CASTING TURNTABLE")
	fmt.Println("================================")

	session := pipeline.NewSession(cfg, logger)
	if err := session.Process(); err != nil {
		switch {
		case errors.Is(err, models.ErrLoad):
			log.Fatalf("Error loading data: %v", err)
		case errors.Is(err, config.ErrConfiguration):
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			printUsage(flags)
			os.Exit(1)
		default:
			log.Fatalf("Rendering failed: %v", err)
		}
	}

	summary := session.Summary()
	fmt.Printf("\nRendered %d frames in %.2f seconds\n", len(summary.Frames), summary.TotalTime.Seconds())
	fmt.Printf("Frames saved to: %s\n\n", summary.OutputDir)

	fmt.Printf("Volume:\n")
	fmt.Printf("- Source dimensions: %v\n", summary.SourceDims)
	if summary.Reduced {
		fmt.Printf("- Reduced dimensions: %v\n", summary.RenderDims)
	}
	fmt.Printf("- Scalar range: [%.1f, %.1f], mean %.2f, std dev %.2f\n",
		summary.ScalarMin, summary.ScalarMax, summary.ScalarMean, summary.ScalarStdDev)

	fmt.Printf("\nRendering:\n")
	fmt.Printf("- Mean frame time: %v\n", summary.FrameTime)
	fmt.Printf("- Slowest frame: %v\n", summary.MaxFrameTime)
	fmt.Printf("- Frames slower than %.2f fps: %d\n", cfg.Render.FrameRate, summary.SlowFrames)
	fmt.Printf("- Mean coverage: %.1f%%\n", summary.Coverage*100)
}

func printUsage(flags *flag.FlagSet) {
	out := flags.Output()
	fmt.Fprintf(out, "Usage:\n\n  volrender <options>\n\nwhere options may include:\n\n")
	flags.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "You must use either -dir to specify a directory of slice images")
	fmt.Fprintln(out, "or -file to specify the path of a .mha or .mhd volume.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "By default, the volume is assumed to have independent components;")
	fmt.Fprintln(out, "use -dependent-components to classify the components jointly.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Frames are written as 000.png ... 350.png, one per 10 degrees of azimuth.")
}
