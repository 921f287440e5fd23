// Package main provides the figura CLI entry point.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/acarlin/figura/pkg/config"
	"github.com/acarlin/figura/pkg/gpu"
	"github.com/acarlin/figura/pkg/model"
	"github.com/acarlin/figura/pkg/runstore"
	"github.com/acarlin/figura/pkg/search"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "figura",
		Short: "figura - GPU annealed search over layered rotating figures",
		Long: `figura explores equilibrium figures of layered rotating bodies by
scattering perturbed variants of a template model across the GPU,
evaluating each one in a compute kernel, and reducing to the best
candidates.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("figura v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	exploreCmd := &cobra.Command{
		Use:   "explore [model.json]",
		Short: "Run an annealed exploration from a template model",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplore,
	}
	exploreCmd.Flags().Int("variants", getEnvInt("FIGURA_VARIANTS", 1000000), "Variants evaluated per round")
	exploreCmd.Flags().Float64("temperature", 1.0, "Initial perturbation temperature")
	exploreCmd.Flags().Int("top-k", 50, "Number of best candidates to report")
	exploreCmd.Flags().Int64("seed", -1, "RNG seed for the first round (-1 = random)")
	exploreCmd.Flags().Int("rounds", 1, "Annealing rounds")
	exploreCmd.Flags().Float64("cool", 0.9, "Temperature multiplier per round")
	exploreCmd.Flags().Bool("archive", getEnvBool("FIGURA_ARCHIVE_ENABLED", false), "Archive the run")
	exploreCmd.Flags().String("config", getEnvStr("FIGURA_CONFIG", "figura.yaml"), "Config file")
	rootCmd.AddCommand(exploreCmd)

	gpuCmd := &cobra.Command{
		Use:   "gpu",
		Short: "Probe GPU availability and device information",
		RunE:  runGPU,
	}
	gpuCmd.Flags().String("config", getEnvStr("FIGURA_CONFIG", "figura.yaml"), "Config file")
	rootCmd.AddCommand(gpuCmd)

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived exploration runs",
	}
	runsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE:  runRunsList,
	}
	runsListCmd.Flags().String("config", getEnvStr("FIGURA_CONFIG", "figura.yaml"), "Config file")
	runsCmd.AddCommand(runsListCmd)

	runsShowCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}
	runsShowCmd.Flags().String("config", getEnvStr("FIGURA_CONFIG", "figura.yaml"), "Config file")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	template, err := model.LoadFile(args[0])
	if err != nil {
		return err
	}

	variants, _ := cmd.Flags().GetInt("variants")
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	topK, _ := cmd.Flags().GetInt("top-k")
	seedFlag, _ := cmd.Flags().GetInt64("seed")
	rounds, _ := cmd.Flags().GetInt("rounds")
	cool, _ := cmd.Flags().GetFloat64("cool")
	archive, _ := cmd.Flags().GetBool("archive")

	var seed *uint32
	if seedFlag >= 0 {
		s := uint32(seedFlag)
		seed = &s
	}

	ctx, err := gpu.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Release()

	defines := append(cfg.PrecisionDefines(), search.GroupSizeDefine(cfg.GPU.GroupSize))
	explorer, err := search.NewExplorer(ctx, cfg.GPU.ShaderDir, defines)
	if err != nil {
		return err
	}
	defer explorer.Release()

	bar := progressbar.Default(int64(rounds), "Exploring")
	res, err := explorer.Anneal(template, search.AnnealOptions{
		Options: search.Options{
			Variants:    variants,
			Temperature: temperature,
			TopK:        topK,
			Seed:        seed,
			GroupSize:   cfg.GPU.GroupSize,
		},
		Rounds:  rounds,
		Cooling: cool,
		OnRound: func(round int, temp float64, r *search.Result) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	printResult(res)

	if archive || cfg.Archive.Enabled {
		store, err := runstore.Open(runstore.Options{Dir: cfg.Archive.Dir})
		if err != nil {
			return err
		}
		defer store.Close()

		run := &runstore.Run{
			Params: runstore.Params{
				Variants:    variants,
				Temperature: temperature,
				TopK:        topK,
				Seed:        res.Seed,
				Rounds:      rounds,
				Cooling:     cool,
				GroupSize:   cfg.GPU.GroupSize,
			},
			Template: template,
			Best:     res.Best,
			TopK:     res.TopK,
		}
		if err := store.Save(run); err != nil {
			return err
		}
		fmt.Printf("\narchived run %s\n", run.ID)
	}
	return nil
}

// printResult renders the best model and the solver table of top-k
// candidates.
func printResult(res *search.Result) {
	out, err := res.Best.MarshalJSON()
	if err == nil {
		fmt.Printf("%s\n", out)
	}

	if len(res.TopK) == 0 {
		return
	}
	fmt.Println(" #      a        b        c     err (x1e6)   total energy")
	fmt.Println("=== ======== ======== ======== ============ ==============")
	for idx, candidate := range res.TopK {
		layer := candidate.Layers[0]
		a, b, c := layer.A, layer.B, layer.C
		if b > a {
			a, b = b, a
		}
		err := candidate.Outputs.RelEquipotentialErr
		energy := candidate.Outputs.TotalEnergy
		fmt.Printf("%3d %8.5f %8.5f %8.5f  %8.3f     %8.5f\n",
			idx+1, a, b, c, err*1e6, energy)
	}
}

func runGPU(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !gpu.IsAvailable() {
		fmt.Println("GPU: not available (no EGL display with OpenGL support)")
		return nil
	}

	ctx, err := gpu.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Release()

	fmt.Println("GPU: available")
	fmt.Printf("  Vendor:     %s\n", ctx.Vendor())
	fmt.Printf("  Renderer:   %s\n", ctx.Renderer())
	fmt.Printf("  Version:    %s\n", ctx.Version())
	fmt.Printf("  Group size: %d\n", cfg.GPU.GroupSize)
	return nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := runstore.Open(runstore.Options{Dir: cfg.Archive.Dir})
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  variants=%d temp=%g rounds=%d score=%g\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Params.Variants, run.Params.Temperature, run.Params.Rounds,
			run.Best.Outputs.Score)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	store, err := runstore.Open(runstore.Options{Dir: cfg.Archive.Dir})
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(id)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  variants=%d temperature=%g top-k=%d seed=%d rounds=%d group-size=%d\n",
		run.Params.Variants, run.Params.Temperature, run.Params.TopK,
		run.Params.Seed, run.Params.Rounds, run.Params.GroupSize)
	if out, err := run.Best.MarshalJSON(); err == nil {
		fmt.Printf("best: %s\n", out)
	}
	return nil
}

// getEnvStr returns environment variable value or default
func getEnvStr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns environment variable as int or default
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool returns environment variable as bool or default
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultVal
}
