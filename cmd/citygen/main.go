package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/voidshard/citygrid"
	"github.com/voidshard/citygrid/internal/voronoi"
)

// cityFlags are shared by every command that builds a city
type cityFlags struct {
	config string
	seed   int64
	width  int
	height int
}

func (f *cityFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "yaml config file (defaults used if not given)")
	cmd.Flags().Int64VarP(&f.seed, "seed", "s", 0, "random seed (overrides config)")
	cmd.Flags().IntVar(&f.width, "width", 0, "map width in tiles (overrides config)")
	cmd.Flags().IntVar(&f.height, "height", 0, "map height in tiles (overrides config)")
}

// build loads config, applies overrides & generates a city
func (f *cityFlags) build(ctx context.Context, log *slog.Logger) (*citygrid.City, error) {
	cfg := citygrid.DefaultConfig()
	if f.config != "" {
		loaded, err := citygrid.LoadConfig(f.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.seed != 0 {
		cfg.Seed = f.seed
	}
	if f.width > 0 {
		cfg.Width = f.width
	}
	if f.height > 0 {
		cfg.Height = f.height
	}

	city, err := citygrid.New(cfg, nil)
	if err != nil {
		return nil, err
	}
	city.SetLogger(log)

	err = city.Generate(ctx)
	if err != nil {
		return nil, err
	}
	return city, nil
}

func main() {
	var verbose bool
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rootCmd := &cobra.Command{
		Use:   "citygen",
		Short: "Procedural city grid generator",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.AddCommand(generateCmd(log))
	rootCmd.AddCommand(pathCmd(log))
	rootCmd.AddCommand(voronoiCmd(log))
	rootCmd.AddCommand(trafficCmd(log))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func generateCmd(log *slog.Logger) *cobra.Command {
	var (
		flags  cityFlags
		out    string
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a city & write it out as a PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			city, err := flags.build(cmd.Context(), log)
			if err != nil {
				return err
			}

			if verify {
				errs := city.Verify()
				for _, e := range errs {
					log.Error("inconsistent occupancy", "err", e)
				}
				if len(errs) > 0 {
					return errors.Errorf("%d occupancy errors", len(errs))
				}
			}

			stats := city.Stats()
			fmt.Printf("seed %d, run %s\n", stats.Seed, stats.Run)
			fmt.Printf("sites %d, branch points %d, road components %d\n", stats.Sites, stats.BranchPoints, stats.Components)
			for _, z := range citygrid.AllZoneTypes() {
				fmt.Printf("  %-12s %d\n", z, stats.ZoneCounts[z])
			}

			return city.Map().SavePNG(out, citygrid.DefaultScheme())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "city.png", "output png")
	cmd.Flags().BoolVar(&verify, "verify", false, "check occupancy consistency after generation")
	return cmd
}

func pathCmd(log *slog.Logger) *cobra.Command {
	var (
		flags    cityFlags
		from, to string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Generate a city & find a traffic aware route between two road tiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parsePoint(from)
			if err != nil {
				return err
			}
			end, err := parsePoint(to)
			if err != nil {
				return err
			}

			city, err := flags.build(cmd.Context(), log)
			if err != nil {
				return err
			}

			path, cost, ok := city.Route(start, end)
			if !ok {
				return errors.Errorf("no route from %v to %v", start, end)
			}
			fmt.Printf("%d tiles, cost %.3f\n", len(path), cost)
			fmt.Println(path)

			if out == "" {
				return nil
			}
			return city.Map().WithPath(path).SavePNG(out, citygrid.DefaultScheme())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&from, "from", "", "start tile as x,y")
	cmd.Flags().StringVar(&to, "to", "", "end tile as x,y")
	cmd.Flags().StringVarP(&out, "out", "o", "", "optional png with the route overlaid")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func voronoiCmd(log *slog.Logger) *cobra.Command {
	var (
		flags cityFlags
		out   string
		scale int
	)

	cmd := &cobra.Command{
		Use:   "voronoi",
		Short: "Generate a city & render the voronoi cells of its sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			city, err := flags.build(cmd.Context(), log)
			if err != nil {
				return err
			}
			return voronoi.NewDiagram(city.Bounds(), city.Sites()).DebugRender(out, scale)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "voronoi.png", "output png")
	cmd.Flags().IntVar(&scale, "scale", 8, "pixels per tile")
	return cmd
}

func trafficCmd(log *slog.Logger) *cobra.Command {
	var (
		flags    cityFlags
		from, to string
		ticks    int
	)

	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Run the traffic model, re-routing between two tiles on each refresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ticks < 1 {
				return errors.Errorf("--ticks must be at least 1, got %d", ticks)
			}
			start, err := parsePoint(from)
			if err != nil {
				return err
			}
			end, err := parsePoint(to)
			if err != nil {
				return err
			}

			city, err := flags.build(cmd.Context(), log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			seen := 0
			city.OnTrafficRefresh(func() {
				// called from the RunTraffic goroutine, never concurrently
				seen++
				path, cost, ok := city.Route(start, end)
				if ok {
					fmt.Printf("tick %d: %d tiles, cost %.3f\n", seen, len(path), cost)
				} else {
					fmt.Printf("tick %d: no route\n", seen)
				}
				if seen >= ticks {
					cancel()
				}
			})

			err = city.RunTraffic(ctx)
			if errors.Is(err, context.Canceled) && seen >= ticks {
				return nil
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&from, "from", "", "start tile as x,y")
	cmd.Flags().StringVar(&to, "to", "", "end tile as x,y")
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 5, "number of traffic refreshes to run")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

// parsePoint reads "x,y"
func parsePoint(s string) (image.Point, error) {
	bits := strings.Split(s, ",")
	if len(bits) != 2 {
		return image.Point{}, errors.Errorf("expected x,y got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(bits[0]))
	if err != nil {
		return image.Point{}, errors.Wrapf(err, "parsing x of %q", s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(bits[1]))
	if err != nil {
		return image.Point{}, errors.Wrapf(err, "parsing y of %q", s)
	}
	return image.Pt(x, y), nil
}
