package main

import (
	"fmt"
	"strings"

	"sdb/io"
	"sdb/spatial"
	"sdb/streets"
	"sdb/web"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Info    struct {
		Map string `help:"The map file to load." placeholder:"<map-file>" arg:"" type:"existingfile"`
	} `cmd:"" help:"Loads the given map file and prints some statistics about it."`
	Dump struct {
		Map    string `help:"The map file to load." placeholder:"<map-file>" arg:"" type:"existingfile"`
		Output string `help:"The GeoJSON output file." placeholder:"<output-file>" arg:"" optional:"" default:"map.geojson"`
	} `cmd:"" help:"Writes the whole map as GeoJSON file."`
	Serve struct {
		Map  string `help:"The map file to load." placeholder:"<map-file>" arg:"" type:"existingfile"`
		Port string `help:"The port the HTTP API listens on." default:"8080"`
	} `cmd:"" help:"Serves the map via an HTTP API."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("Street database"),
		kong.Description("A read-only street map database loaded from a preprocessed binary map file."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "info <map>":
		db, err := streets.Load(cli.Info.Map)
		sigolo.FatalCheck(err)
		printInfo(db)
	case "dump <map>", "dump <map> <output>":
		db, err := streets.Load(cli.Dump.Map)
		sigolo.FatalCheck(err)

		err = io.WriteDatabaseAsGeoJsonFile(db, cli.Dump.Output)
		sigolo.FatalCheck(err)
	case "serve <map>":
		db, err := streets.Load(cli.Serve.Map)
		sigolo.FatalCheck(err)

		index, err := spatial.NewIndex(db)
		sigolo.FatalCheck(err)

		web.StartServer(cli.Serve.Port, db, index)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func printInfo(db *streets.Database) {
	intersections, err := db.IntersectionCount()
	sigolo.FatalCheck(err)
	segments, err := db.StreetSegmentCount()
	sigolo.FatalCheck(err)
	streetCount, err := db.StreetCount()
	sigolo.FatalCheck(err)
	pois, err := db.PoiCount()
	sigolo.FatalCheck(err)
	features, err := db.FeatureCount()
	sigolo.FatalCheck(err)
	bounds, err := db.Bounds()
	sigolo.FatalCheck(err)

	fmt.Printf("Intersections  : %d\n", intersections)
	fmt.Printf("Street segments: %d\n", segments)
	fmt.Printf("Streets        : %d\n", streetCount)
	fmt.Printf("POIs           : %d\n", pois)
	fmt.Printf("Features       : %d\n", features)
	fmt.Printf("Bounds         : %f,%f - %f,%f\n", bounds.Min.Lon(), bounds.Min.Lat(), bounds.Max.Lon(), bounds.Max.Lat())
}
