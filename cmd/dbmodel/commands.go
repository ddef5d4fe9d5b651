package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Kaguya154/dbmodel"
	"github.com/Kaguya154/dbmodel/config"
	"github.com/Kaguya154/dbmodel/logger"
	"github.com/Kaguya154/dbmodel/metrics"
	"github.com/Kaguya154/dbmodel/model"
	"github.com/Kaguya154/dbmodel/parser"
	"github.com/Kaguya154/dbmodel/types"
)

// app 保存命令行参数
type app struct {
	configPath  string
	datasource  string
	table       string
	metricsAddr string

	where  string
	fields []string
	group  []string
	order  []string
	limit  int
	offset int

	server *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "dbmodel",
		Short:             "Query tables through the dbmodel engine",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 每次运行一个 id，出现在该次所有语句日志中
			cmd.SetContext(logger.WithRequestID(cmd.Context(), uuid.NewString()))
			return a.startMetrics(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.server != nil {
				return a.server.Close()
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "dbmodel.yaml", "path to the YAML configuration")
	pf.StringVarP(&a.datasource, "datasource", "d", "", "datasource name, defaults to the configured default")
	pf.StringVarP(&a.table, "table", "t", "", "table to query")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	root.AddCommand(a.sqlCmd(), a.queryCmd(), a.getCmd(), a.countCmd(), a.explainCmd())
	return root
}

func (a *app) queryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&a.where, "where", "w", "", `conditions as a JSON object, e.g. {"status":"active","age >=":18}`)
	f.StringSliceVar(&a.fields, "fields", nil, "columns to select")
	f.StringSliceVar(&a.group, "group", nil, "GROUP BY columns")
	f.StringSliceVar(&a.order, "order", nil, "ORDER BY terms")
	f.IntVar(&a.limit, "limit", 0, "LIMIT")
	f.IntVar(&a.offset, "offset", 0, "OFFSET")
}

func (a *app) startMetrics(cmd *cobra.Command) error {
	if a.metricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.server = &http.Server{Addr: a.metricsAddr, Handler: mux}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(cmd.ErrOrStderr(), "metrics server:", err)
		}
	}()
	return nil
}

func (a *app) spec() (types.QuerySpec, error) {
	cond, err := parseWhere(a.where)
	if err != nil {
		return types.QuerySpec{}, err
	}
	return types.QuerySpec{
		Fields:     a.fields,
		Conditions: cond,
		Group:      a.group,
		Order:      a.order,
		Limit:      a.limit,
		Offset:     a.offset,
	}, nil
}

// parseWhere 解析 JSON 条件，顶层键保持输入顺序
func parseWhere(s string) (*types.Condition, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var r types.Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, types.NewInputError("where", "invalid JSON: %v", err)
	}
	pairs := make(types.Where, 0, r.Len())
	for _, col := range r.Columns() {
		pairs = append(pairs, types.Pair{Key: col, Value: normalize(r.Get(col))})
	}
	return types.ParseConditions(pairs, "")
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}

// dialect 优先使用 --driver，否则取配置中数据源的驱动
func (a *app) dialect(driver string) (types.DriverKind, error) {
	if driver == "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return 0, err
		}
		_, ds, err := cfg.Resolve(a.datasource)
		if err != nil {
			return 0, err
		}
		driver = ds.Driver
	}
	return types.ParseDriverKind(driver)
}

// openModel 根据配置打开连接与缓存并创建模型，返回的函数释放它们。
func (a *app) openModel(cmd *cobra.Command) (*model.Model, func(), error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	_, ds, err := cfg.Resolve(a.datasource)
	if err != nil {
		return nil, nil, err
	}
	log := cfg.Logging.Logger(cmd.ErrOrStderr())
	logger.SetDefault(log)

	cols, err := ds.Columns.ColumnMap()
	if err != nil {
		return nil, nil, err
	}
	conn, err := dbmodel.Open(ds.DBConfig())
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{conn.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}

	opts := []model.Option{model.WithLogger(log)}
	if ds.Cache {
		c, closeCache, err := cfg.Cache.Open()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeCache)
		opts = append(opts, model.WithCache(c))
	}
	m, err := dbmodel.NewModel(conn, a.table, model.Definition{Columns: &cols}, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	log.Debug("model ready", slog.String("table", a.table), slog.String("driver", ds.Driver))
	return m, cleanup, nil
}

func (a *app) sqlCmd() *cobra.Command {
	var (
		driver string
		format string
		count  bool
	)
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the SELECT a query compiles to without connecting",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.spec()
			if err != nil {
				return err
			}
			spec.Table = a.table
			out := cmd.OutOrStdout()
			if format == "json" {
				s, err := (&parser.JSONParser{}).Parse(spec.Conditions)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}

			kind, err := a.dialect(driver)
			if err != nil {
				return err
			}
			stmt, err := parser.New(kind).Select(spec, count)
			if err != nil {
				return err
			}
			switch format {
			case "preview":
				fmt.Fprintln(out, parser.Preview(stmt))
			case "sql", "":
				fmt.Fprintln(out, stmt.SQL)
				return writeJSON(out, stmt.Args)
			default:
				return types.NewInputError("sql", "unknown format %q", format)
			}
			return nil
		},
	}
	a.queryFlags(cmd)
	cmd.Flags().StringVar(&driver, "driver", "", "dialect to compile for; read from the datasource when empty")
	cmd.Flags().StringVar(&format, "format", "sql", "output format: sql, preview or json (conditions only)")
	cmd.Flags().BoolVar(&count, "count", false, "compile a COUNT(*) query")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a SELECT and print one JSON document per row",
		RunE: func(cmd *cobra.Command, args []string) error {
			qm, err := types.ParseQueryMode(mode)
			if err != nil {
				return err
			}
			if qm == types.ModeNone || qm == types.ModeCount {
				qm = types.ModeAll
			}
			spec, err := a.spec()
			if err != nil {
				return err
			}
			m, cleanup, err := a.openModel(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := m.Execute(cmd.Context(), qm, spec); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if qm == types.ModeAll {
				for _, r := range m.Records() {
					if err := writeJSON(out, r); err != nil {
						return err
					}
				}
				return nil
			}
			for _, e := range m.Entries() {
				if err := writeJSON(out, map[string]any{"key": e.Key, "value": e.Value}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	a.queryFlags(cmd)
	cmd.Flags().StringVar(&mode, "mode", "all", "result shape: all, list or indexed")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Load one row by id, using the cache when the datasource enables it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.openModel(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := m.Execute(cmd.Context(), types.ModeNone, args[0]); err != nil {
				return err
			}
			if m.Len() == 0 {
				return fmt.Errorf("%s %s not found", a.table, args[0])
			}
			return writeJSON(cmd.OutOrStdout(), m.Record())
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of matching rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.spec()
			if err != nil {
				return err
			}
			m, cleanup, err := a.openModel(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := m.Count(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	a.queryFlags(cmd)
	return cmd
}

func (a *app) explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the database plan for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.spec()
			if err != nil {
				return err
			}
			m, cleanup, err := a.openModel(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := m.Explain(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), m.Preview())
			for _, r := range plan {
				if err := writeJSON(cmd.OutOrStdout(), r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	a.queryFlags(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
