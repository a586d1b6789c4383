package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gregLibert/cardflow/pkg/aid"
	"github.com/gregLibert/cardflow/pkg/card"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/state"
	"github.com/gregLibert/cardflow/pkg/workflow"
)

func main() {
	// --- 1. Configuration and Logging ---
	cfg := loadConfig()
	setupLogging(cfg)

	if len(os.Args) < 3 {
		fmt.Println("Usage: cardflow <plugin> <workflow> [field=value ...]")
		os.Exit(2)
	}
	pluginName, workflowID := os.Args[1], os.Args[2]
	initial := parseFieldArgs(os.Args[3:])

	// --- 2. Plugin Registry ---
	registry := loadPlugins(cfg.GetString("plugin_dir"))

	plugin, ok := registry.Resolve(pluginName)
	if !ok {
		logrus.Fatalf("Plugin %q not found (known: %s)", pluginName, strings.Join(registry.Names(), ", "))
	}

	wf, ok := plugin.FindWorkflow(workflowID)
	if !ok {
		logrus.Fatalf("Plugin %q has no workflow %q", pluginName, workflowID)
	}

	// --- 3. Card Connection and Applet Selection ---
	session, err := card.Open(cfg.GetString("reader"))
	if err != nil {
		logrus.Fatalf("Card connection failed: %v", err)
	}

	target, err := aid.Resolve(&plugin.Metadata, initial)
	if err != nil {
		session.Close()
		logrus.Fatalf("AID resolution failed: %v", err)
	}

	fmt.Printf("\n>> Selecting %s (AID %X)\n", plugin.Metadata.Name, target)
	if _, err := session.Select(target); err != nil {
		session.Close()
		logrus.Fatalf("Selection failed: %v", err)
	}
	if fci, err := state.ParseSelectFCI(session.LastSelectResponse()); err == nil && fci != nil {
		fmt.Printf("   %s\n", fci.Describe())
	}

	// --- 4. State Snapshot Before the Run ---
	if plugin.ManagementUI != nil {
		printStates(session, plugin.ManagementUI.StateReaders)
	}

	// --- 5. Workflow Execution ---
	engine := workflow.NewEngine(workflow.Config{
		UI: &consoleUI{in: bufio.NewReader(os.Stdin)},
		Progress: func(message string, percent int) {
			fmt.Printf("   [%3d%%] %s\n", percent, message)
		},
	})

	fmt.Printf("\n>> Running workflow %q\n", wf.ID)
	result := engine.Run(wf, session, initial)
	if !result.Success {
		logrus.Fatalf("Workflow failed at step %q: %s", result.FailedStep, result.Message)
	}

	fmt.Printf("\n>> %s\n", result.Message)
}

func loadConfig() *viper.Viper {
	cfg := viper.New()
	cfg.SetConfigName("cardflow")
	cfg.AddConfigPath(".")
	cfg.SetEnvPrefix("cardflow")
	cfg.AutomaticEnv()

	cfg.SetDefault("plugin_dir", "plugins")
	cfg.SetDefault("reader", "")
	cfg.SetDefault("log.level", "info")
	cfg.SetDefault("log.file", "")

	if err := cfg.ReadInConfig(); err != nil {
		// A missing config file falls back to defaults; a malformed one is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.Fatalf("Config error: %v", err)
		}
	}
	return cfg
}

func setupLogging(cfg *viper.Viper) {
	level, err := logrus.ParseLevel(cfg.GetString("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if file := cfg.GetString("log.file"); file != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		})
	}
}

// loadPlugins registers every definition (json or yaml) found in dir. A
// broken definition is reported and skipped, not fatal.
func loadPlugins(dir string) *schema.Registry {
	registry := schema.NewRegistry()

	entries, err := os.ReadDir(dir)
	if err != nil {
		logrus.Fatalf("Cannot read plugin directory %q: %v", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		path := dir + "/" + entry.Name()
		plugin, err := schema.Load(path)
		if err != nil {
			logrus.WithError(err).Warnf("Skipping plugin %s", entry.Name())
			continue
		}
		if err := registry.Register(plugin); err != nil {
			logrus.WithError(err).Warnf("Skipping plugin %s", entry.Name())
			continue
		}
		logrus.WithField("plugin", plugin.Metadata.Name).Debug("plugin registered")
	}
	return registry
}

func isDefinitionFile(name string) bool {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func printStates(session *card.Session, readers []schema.StateReader) {
	if len(readers) == 0 {
		return
	}

	fmt.Println("\n=============================================")
	fmt.Println(" Applet State")
	fmt.Println("=============================================")

	monitor := state.NewMonitor(session, readers)
	states := monitor.RefreshAll()
	for _, reader := range readers {
		st := states[reader.ID]
		label := reader.Label
		if label == "" {
			label = reader.ID
		}
		if st.Success {
			fmt.Printf("  %-24s %s\n", label, st.DisplayValue)
		} else {
			fmt.Printf("  %-24s (error: %s)\n", label, st.Error)
		}
	}
}

func parseFieldArgs(args []string) map[string]string {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			logrus.Fatalf("Bad field argument %q, expected key=value", arg)
		}
		values[key] = value
	}
	return values
}

// consoleUI satisfies the workflow UI capability with plain stdin prompts.
type consoleUI struct {
	in *bufio.Reader
}

func (c *consoleUI) PromptDialog(fields []schema.Field) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		label := field.Label
		if label == "" {
			label = field.ID
		}
		if field.Default != "" {
			fmt.Printf("%s [%s]: ", label, field.Default)
		} else {
			fmt.Printf("%s: ", label)
		}

		line, err := c.in.ReadString('\n')
		if err != nil {
			return nil, err
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = field.Default
		}
		if answer == "" && field.Required {
			return nil, fmt.Errorf("field %q is required", field.ID)
		}
		values[field.ID] = answer
	}
	return values, nil
}

func (c *consoleUI) Confirm(message string) (bool, error) {
	fmt.Printf("%s [y/N]: ", message)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
