package main

import (
	"fmt"
	"strings"

	"geoindex/importing"
	"geoindex/index"
	"geoindex/web"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Serve   struct {
		Port       string `help:"Port to listen on." short:"p" default:"8780"`
		CertFile   string `help:"Certificate file to enable TLS." optional:""`
		KeyFile    string `help:"Key file to enable TLS." optional:""`
		MaxEntries int    `help:"Fan-out of the trees behind new sessions." default:"9"`
	} `cmd:"" help:"Starts the geo index server."`
	Import struct {
		Input      string `help:"The input file. Either .osm or .osm.pbf." placeholder:"<input-file>" arg:"" type:"existingfile"`
		Output     string `help:"GeoJSON file the query result is written to." short:"o" default:"output.geojson"`
		Bbox       string `help:"Query window as 'minLon,minLat,maxLon,maxLat'. Without it every imported entry is written." optional:""`
		MaxEntries int    `help:"Fan-out of the tree." default:"9"`
	} `cmd:"" help:"Imports the given OSM file into a tree and writes the query result as GeoJSON."`
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
		kong.Name("Geo index"),
		kong.Description("An R-tree geo index with sessions, GeoJSON boundary and bulk import."),
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
	case "serve":
		if cli.Serve.CertFile != "" && cli.Serve.KeyFile != "" {
			web.StartServerTls(cli.Serve.Port, cli.Serve.CertFile, cli.Serve.KeyFile, cli.Serve.MaxEntries)
		} else {
			web.StartServer(cli.Serve.Port, cli.Serve.MaxEntries)
		}
	case "import <input>":
		tree, err := importing.Import(cli.Import.Input, cli.Import.MaxEntries)
		sigolo.FatalCheck(err)

		entries := tree.Entries()
		if cli.Import.Bbox != "" {
			entries, err = queryTree(tree, cli.Import.Bbox)
			sigolo.FatalCheck(err)
		}

		sigolo.Debugf("Found %d entries", len(entries))

		err = importing.WriteEntriesAsGeoJsonFile(entries, cli.Import.Output)
		sigolo.FatalCheck(err)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func queryTree(tree *index.RTree[string], bbox string) ([]*index.Node[string], error) {
	env, err := web.ParseBbox(bbox)
	if err != nil {
		return nil, err
	}
	return tree.Search(env)
}
