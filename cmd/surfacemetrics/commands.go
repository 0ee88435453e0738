package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/config"
	"surfacemetrics/pkg/intensity"
	"surfacemetrics/pkg/meshio"
	"surfacemetrics/pkg/recolor"
	"surfacemetrics/pkg/ridge"
	"surfacemetrics/pkg/topology"
	"surfacemetrics/pkg/visualization"
	"surfacemetrics/pkg/voids"
)

func runDistance(args []string) error {
	fs := flag.NewFlagSet("distance", flag.ExitOnError)
	c := commonFlags(fs)
	surfaces := fs.String("surfaces", "", "Glob of cell surface STL files, one per frame")
	to := fs.String("to", "", "Glob of the surfaces to measure the distance to")
	knn := fs.Int("knn", 0, "Neighbours per vertex, itself included (0 uses the config value)")
	fs.Parse(args)
	required(fs, "surfaces", "to")

	e, err := c.setup("distance")
	if err != nil {
		return err
	}
	defer e.Close()

	cells, err := e.loadSurfaces(*surfaces)
	if err != nil {
		return err
	}
	targets, err := e.loadSurfaces(*to)
	if err != nil {
		return err
	}
	k := e.cfg.Processing.KNN
	if *knn > 0 {
		k = *knn
	}
	if err := topology.DistanceSeries(cells.surfaces, targets.surfaces, k); err != nil {
		return err
	}
	return cells.save()
}

func runTopology(args []string) error {
	fs := flag.NewFlagSet("topology", flag.ExitOnError)
	c := commonFlags(fs)
	surfaces := fs.String("surfaces", "", "Glob of cell surface STL files, one per frame")
	targets := fs.String("targets", "", "Glob of target surface STL files, one per frame")
	target := fs.String("target", "", "Target kind, sRBC or mRBC (overrides config)")
	fs.Parse(args)
	required(fs, "surfaces", "targets")

	e, err := c.setup("topology")
	if err != nil {
		return err
	}
	defer e.Close()
	if *target != "" {
		e.cfg.Topology.Target = *target
	}

	cells, err := e.loadSurfaces(*surfaces)
	if err != nil {
		return err
	}
	tgts, err := e.loadSurfaces(*targets)
	if err != nil {
		return err
	}
	p := e.cfg.TopologyParams()
	p.Sink, p.Logger = e.sink, e.logger
	results, err := topology.MeasureSeries(cells.surfaces, tgts.surfaces, p)
	if err != nil {
		return err
	}
	if results == nil {
		e.logger.Warn("unknown target kind, nothing measured", "target", p.Target)
		return nil
	}

	fmt.Printf("\nAreal roughness:\n")
	for i, r := range results {
		fmt.Printf("- frame %d: S_q %.4f (std %.4f), area %.4f um^2, S_q/area %.6f\n",
			i, r.ArealRoughness, r.ArealRoughnessSTD, r.Area, r.ArealRoughnessPerArea)
	}
	return cells.save()
}

func runRidges(args []string) error {
	fs := flag.NewFlagSet("ridges", flag.ExitOnError)
	c := commonFlags(fs)
	surfaces := fs.String("surfaces", "", "Glob of cell surface STL files, one per frame")
	targets := fs.String("targets", "", "Glob of target surface STL files, one per frame")
	track := fs.Bool("track", false, "Track ridge vertices into the next frame")
	plots := fs.String("plots", "", "Directory receiving skeleton scatter plots (overrides config)")
	fs.Parse(args)
	required(fs, "surfaces", "targets")

	e, err := c.setup("ridges")
	if err != nil {
		return err
	}
	defer e.Close()

	cells, err := e.loadSurfaces(*surfaces)
	if err != nil {
		return err
	}
	tgts, err := e.loadSurfaces(*targets)
	if err != nil {
		return err
	}
	p := e.cfg.RidgeParams()
	p.Track = p.Track || *track
	if *plots != "" {
		if err := os.MkdirAll(*plots, 0755); err != nil {
			return err
		}
		p.PlotDir = *plots
	}
	p.Sink, p.Logger = e.sink, e.logger

	results, err := ridge.Series(cells.surfaces, tgts.surfaces, p)
	if err != nil {
		return err
	}
	fmt.Printf("\nRidges:\n")
	for i, r := range results {
		fmt.Printf("- frame %d: area %.4f um^2, path length %.4f um (%.4f um in %d fragments)\n",
			i, r.Area, r.PathLength, r.PathLengthAboveThreshold, len(r.Histogram))
	}
	return cells.save()
}

// intensityFrames pairs surfaces with their isosurface and signal volumes.
func (e *env) intensityFrames(surfaces, iso, signal, second string, level float64) (*surfaceSet, []intensity.Frame, error) {
	cells, err := e.loadSurfaces(surfaces)
	if err != nil {
		return nil, nil, err
	}
	isos, err := e.loadVolumes(iso, level)
	if err != nil {
		return nil, nil, err
	}
	signals, err := e.loadVolumes(signal, level)
	if err != nil {
		return nil, nil, err
	}
	if err := sameLength("isosurface volumes", len(isos), len(cells.surfaces)); err != nil {
		return nil, nil, err
	}
	if err := sameLength("signal volumes", len(signals), len(cells.surfaces)); err != nil {
		return nil, nil, err
	}
	var seconds []*models.Volume
	if second != "" {
		if seconds, err = e.loadVolumes(second, level); err != nil {
			return nil, nil, err
		}
		if err := sameLength("second channel volumes", len(seconds), len(cells.surfaces)); err != nil {
			return nil, nil, err
		}
	}

	frames := make([]intensity.Frame, len(cells.surfaces))
	for i, s := range cells.surfaces {
		frames[i] = intensity.Frame{Surface: s, Iso: isos[i], Signal: signals[i]}
		if seconds != nil {
			frames[i].Second = seconds[i]
		}
	}
	return cells, frames, nil
}

func runIntensity(args []string) error {
	fs := flag.NewFlagSet("intensity", flag.ExitOnError)
	c := commonFlags(fs)
	surfaces := fs.String("surfaces", "", "Glob of cell surface STL files, one per frame")
	iso := fs.String("iso", "", "Glob of the volumes the surfaces were drawn from")
	signal := fs.String("signal", "", "Glob of the signal volumes")
	level := fs.Float64("level", 128, "Surface level of slice image stacks")
	normal := fs.String("normal", "", "Hemisphere split plane normal as x,y,z")
	blob := fs.Int("blob", 0, "Surface component split into hemispheres, 1 is the largest (0 uses the config value)")
	fs.Parse(args)
	required(fs, "surfaces", "iso", "signal")

	e, err := c.setup("intensity")
	if err != nil {
		return err
	}
	defer e.Close()

	p := e.cfg.IntensityParams()
	if *normal != "" {
		n, err := parseVec(*normal)
		if err != nil {
			return err
		}
		p.Normal = &n
	}
	if *blob > 0 {
		p.Blob = *blob
	}
	p.Sink, p.Logger = e.sink, e.logger

	cells, frames, err := e.intensityFrames(*surfaces, *iso, *signal, "", *level)
	if err != nil {
		return err
	}
	results, err := intensity.Series(frames, p)
	if err != nil {
		return err
	}
	if p.Normal != nil {
		fmt.Printf("\nHemisphere intensity:\n")
		for i, r := range results {
			fmt.Printf("- frame %d: top %.4f, bottom %.4f\n", i, r.TopSum, r.BottomSum)
		}
	}
	return cells.save()
}

func runComposite(args []string) error {
	fs := flag.NewFlagSet("composite", flag.ExitOnError)
	c := commonFlags(fs)
	surfaces := fs.String("surfaces", "", "Glob of cell surface STL files, one per frame")
	iso := fs.String("iso", "", "Glob of the volumes the surfaces were drawn from")
	green := fs.String("green", "", "Glob of the first channel volumes")
	magenta := fs.String("magenta", "", "Glob of the second channel volumes")
	level := fs.Float64("level", 128, "Surface level of slice image stacks")
	fs.Parse(args)
	required(fs, "surfaces", "iso", "green", "magenta")

	e, err := c.setup("composite")
	if err != nil {
		return err
	}
	defer e.Close()

	cells, frames, err := e.intensityFrames(*surfaces, *iso, *green, *magenta, *level)
	if err != nil {
		return err
	}
	if err := intensity.CompositeSeries(frames, e.cfg.Intensity.Radius); err != nil {
		return err
	}
	return cells.save()
}

func runVoids(args []string) error {
	fs := flag.NewFlagSet("voids", flag.ExitOnError)
	c := commonFlags(fs)
	volumes := fs.String("volumes", "", "Glob of volumes or slice directories, one per frame")
	save := fs.String("save", "voids", "Directory receiving the void volumes")
	slices := fs.String("slices", "", "Directory receiving z slices of every void volume")
	fs.Parse(args)
	required(fs, "volumes")

	e, err := c.setup("voids")
	if err != nil {
		return err
	}
	defer e.Close()

	vols, err := e.loadVolumes(*volumes, 0)
	if err != nil {
		return err
	}
	p := e.cfg.VoidParams()
	p.Register = meshio.DirRegistrar(*save)
	p.Logger = e.logger
	out, err := voids.Series(vols, p)
	if err != nil {
		return err
	}
	fmt.Printf("\nVoid volumes saved to: %s\n", *save)

	if *slices != "" {
		for _, v := range out {
			viewer := visualization.NewViewer(v)
			if err := viewer.SaveSliceSequence("z", *slices, baseName(v.Name)); err != nil {
				e.logger.Warn("failed to save void slices", "volume", v.Name, "error", err)
			}
		}
		fmt.Printf("Void slices saved to: %s\n", *slices)
	}
	return nil
}

func runVoidSize(args []string) error {
	fs := flag.NewFlagSet("voidsize", flag.ExitOnError)
	c := commonFlags(fs)
	volumes := fs.String("voids", "", "Glob of void volumes, one per frame")
	tracks := fs.String("tracks", "", "Track file of id x y z lines")
	id := fs.Int("track", -1, "Track to measure (-1 measures every track)")
	fs.Parse(args)
	required(fs, "voids", "tracks")

	e, err := c.setup("voidsize")
	if err != nil {
		return err
	}
	defer e.Close()

	vols, err := e.loadVolumes(*volumes, 0.5)
	if err != nil {
		return err
	}
	all, err := meshio.LoadTracks(*tracks)
	if err != nil {
		return err
	}
	fmt.Printf("\nVoid sizes (voxels):\n")
	for _, t := range all {
		if *id >= 0 && t.ID != *id {
			continue
		}
		n := min(len(vols), t.Frames())
		sizes, err := voids.SizeSeries(vols[:n], t, e.sink, e.logger)
		if err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
		fmt.Printf("- track %d: %v\n", t.ID, sizes)
	}
	return nil
}

func runMotion(args []string) error {
	fs := flag.NewFlagSet("motion", flag.ExitOnError)
	c := commonFlags(fs)
	tracks := fs.String("tracks", "", "Track file of id x y z lines")
	fs.Parse(args)
	required(fs, "tracks")

	e, err := c.setup("motion")
	if err != nil {
		return err
	}
	defer e.Close()

	all, err := meshio.LoadTracks(*tracks)
	if err != nil {
		return err
	}
	fmt.Printf("\nTrack motion:\n")
	for _, t := range all {
		distance, rms, err := voids.Motion(t, e.sink, e.logger)
		if err != nil {
			e.logger.Warn("skipping track", "track", t.ID, "error", err)
			continue
		}
		fmt.Printf("- track %d: distance %.4f, per frame %.4f\n", t.ID, distance, rms)
	}
	return nil
}

func runRecolor(args []string) error {
	fs := flag.NewFlagSet("recolor", flag.ExitOnError)
	c := commonFlags(fs)
	surfaces := fs.String("surfaces", "", "Glob of measured surface STL files")
	metric := fs.String("metric", "", "Measurement to colour by, or composite")
	palette := fs.String("palette", "", "Colormap, purples or brbg (default per metric); green_magenta or magenta_green for composite")
	colorRange := fs.String("range", "", "Colour range: empty for the default, full, or min,max")
	magentaRange := fs.String("magenta-range", "", "Composite magenta range: empty, full, or min,max")
	outDir := fs.String("ply", "colored", "Directory receiving coloured PLY meshes")
	fs.Parse(args)
	required(fs, "surfaces", "metric")

	e, err := c.setup("recolor")
	if err != nil {
		return err
	}
	defer e.Close()

	spec, err := recolor.ParseRange(*colorRange)
	if err != nil {
		return err
	}
	cells, err := e.loadSurfaces(*surfaces)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}

	for i, s := range cells.surfaces {
		var colors []color.RGBA
		if *metric == "composite" {
			mspec, err := recolor.ParseRange(*magentaRange)
			if err != nil {
				return err
			}
			g, m, ok := recolor.CompositeRanges(s, *palette, spec, mspec, recolor.DefaultPaletteRange)
			if !ok {
				e.logger.Warn("surface has no composite measurement", "surface", s.ID)
				continue
			}
			colors = recolor.Blend(g, m)
		} else {
			col, ok := recolor.Resolve(s, *metric, recolor.Palette(*palette), spec)
			if !ok {
				e.logger.Warn("surface cannot be coloured", "surface", s.ID, "metric", *metric)
				continue
			}
			if colors, err = col.Colors(); err != nil {
				return err
			}
			e.logger.Info("coloring", "surface", s.ID, "metric", col.Metric, "palette", col.Palette, "min", col.Range.Min, "max", col.Range.Max)
		}
		path := filepath.Join(*outDir, baseName(cells.paths[i])+".ply")
		if err := meshio.SavePLY(path, s, colors); err != nil {
			return err
		}
	}
	fmt.Printf("\nColoured meshes saved to: %s\n", *outDir)
	return nil
}

func runIsosurface(args []string) error {
	fs := flag.NewFlagSet("isosurface", flag.ExitOnError)
	c := commonFlags(fs)
	volumes := fs.String("volumes", "", "Glob of volumes or slice directories, one per frame")
	level := fs.Float64("level", 128, "Surface level of slice image stacks")
	outDir := fs.String("stl", "surfaces", "Directory receiving STL surfaces")
	fs.Parse(args)
	required(fs, "volumes")

	e, err := c.setup("isosurface")
	if err != nil {
		return err
	}
	defer e.Close()

	vols, err := e.loadVolumes(*volumes, *level)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}
	for i, v := range vols {
		name := baseName(v.Name)
		s := meshio.Isosurface(v, name, i)
		path := filepath.Join(*outDir, name+".stl")
		if err := meshio.SaveSurface(path, s); err != nil {
			return err
		}
		e.logger.Info("saved surface", "path", path, "vertices", len(s.Vertices), "triangles", len(s.Triangles))
	}
	fmt.Printf("\nSurfaces saved to: %s\n", *outDir)
	return nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	path := fs.String("write", "surfacemetrics.yaml", "Configuration file to create")
	fs.Parse(args)

	if err := config.CreateDefaultConfigFile(*path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to: %s\n", *path)
	return nil
}
