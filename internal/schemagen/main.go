// Command schemagen writes the JSON schemas of chipper's document kinds.
package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/macropower/chipper/api/v1beta1/configs"
	"github.com/macropower/chipper/api/v1beta1/preferences"
	"github.com/macropower/chipper/pkg/schema"
)

var outDir = pflag.StringP("out-dir", "o", ".", "Directory to write the generated schemas to")

func main() {
	pflag.Parse()

	for _, gen := range []struct {
		value any
		id    string
	}{
		{configs.New(), configs.SchemaID},
		{preferences.New(), preferences.SchemaID},
	} {
		jsData, err := schema.NewGenerator(gen.id, gen.value).Generate()
		if err != nil {
			log.Fatalf("generate JSON schema %s: %v", gen.id, err)
		}

		path := filepath.Join(*outDir, strings.TrimPrefix(gen.id, "/"))

		err = os.WriteFile(path, jsData, 0o600)
		if err != nil {
			log.Fatalf("write schema file: %v", err)
		}
	}
}
