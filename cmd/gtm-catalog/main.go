package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
)

const usage = `usage: gtm-catalog [-db path] <command> [args]

commands:
  import <file.yaml>   validate a catalog file and publish it as a new version
  list                 list published versions, oldest first
  export [version]     write a published version (default latest) as YAML
  defaults             write the built-in catalog as YAML
`

func main() {
	dbPath := flag.String("db", os.Getenv("GTM_CATALOG_DB"), "Path to the catalog SQLite database (default GTM_CATALOG_DB)")
	outPath := flag.String("output", "", "Write YAML output to this path instead of stdout")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(args, *dbPath, *outPath, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, dbPath, outPath string, stdout io.Writer) error {
	cmd := args[0]
	if cmd == "defaults" {
		return writeYAML(catalog.Default(), outPath, stdout)
	}
	if dbPath == "" {
		return fmt.Errorf("%s needs -db or GTM_CATALOG_DB", cmd)
	}
	repo, err := catalog.OpenRepository(dbPath, nil)
	if err != nil {
		return err
	}
	defer repo.Close()

	switch cmd {
	case "import":
		if len(args) != 2 {
			return fmt.Errorf("import takes exactly one file")
		}
		cat, err := catalog.LoadFile(args[1])
		if err != nil {
			return err
		}
		info, err := repo.Save(cat)
		if err != nil {
			return err
		}
		log.Printf("catalog published version=%s checksum=%s", info.Version, info.Checksum)
		return nil
	case "list":
		versions, err := repo.Versions()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tCHECKSUM\tCREATED")
		for _, v := range versions {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Version, v.Checksum[:12], v.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	case "export":
		var cat *catalog.Catalog
		if len(args) > 1 {
			cat, err = repo.Load(args[1])
		} else {
			cat, err = repo.Latest()
		}
		if err != nil {
			return err
		}
		return writeYAML(cat, outPath, stdout)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func writeYAML(cat *catalog.Catalog, outPath string, stdout io.Writer) error {
	data, err := catalog.Marshal(cat)
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
