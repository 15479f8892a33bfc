package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/x19-huhr/mybatis/scripting"
)

// RenderCmd renders a statement without touching a database
type RenderCmd struct {
	ID         string   `arg:"" help:"Statement id (namespace.id, or an id unique across namespaces)"`
	ParamsFile string   `short:"P" long:"params" help:"Parameters file (JSON/YAML)" type:"path"`
	Param      []string `short:"p" long:"param" help:"Individual parameter (key=value format)"`
	DatabaseID string   `long:"database-id" help:"Database id used to select statements and for _databaseId"`
	Sample     bool     `long:"sample" help:"Use the sample parameters recorded in a markdown document"`
	Format     string   `long:"format" help:"Output format" default:"text" enum:"text,json,yaml"`
}

type renderOutput struct {
	Statement  string         `json:"statement" yaml:"statement"`
	SQL        string         `json:"sql" yaml:"sql"`
	Parameters []renderedBind `json:"parameters" yaml:"parameters"`
}

type renderedBind struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Run executes the render command
func (r *RenderCmd) Run(ctx *Context) error {
	config, err := ctx.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := ctx.Logger(config)
	if err != nil {
		return err
	}

	reg, err := ctx.OpenRegistry(config, logger, r.DatabaseID)
	if err != nil {
		return err
	}

	stmt, err := reg.Statement(r.ID)
	if err != nil {
		return err
	}

	params, err := loadParameters(r.ParamsFile, r.Param)
	if err != nil {
		return err
	}

	if r.Sample {
		for k, v := range stmt.SampleParams {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}
	}

	bound, err := reg.Render(context.Background(), stmt.FullID(), params)
	if err != nil {
		return err
	}

	return writeRendered(ctx.stdout(), r.Format, stmt.FullID(), bound)
}

func writeRendered(w io.Writer, format, id string, bound *scripting.BoundSQL) error {
	out := renderOutput{
		Statement:  id,
		SQL:        bound.SQL,
		Parameters: make([]renderedBind, len(bound.Parameters)),
	}

	for i, p := range bound.Parameters {
		out.Parameters[i] = renderedBind{Name: p.Name, Value: p.Value}
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(out)
	case "yaml":
		data, err := yaml.Marshal(out)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	}

	fmt.Fprintln(w, strings.TrimSpace(bound.SQL))

	if len(bound.Parameters) > 0 {
		fmt.Fprintln(w, color.New(color.FgCyan).Sprint("-- parameters"))

		for i, p := range bound.Parameters {
			fmt.Fprintf(w, "-- %d: %s = %v\n", i+1, p.Name, p.Value)
		}
	}

	return nil
}
