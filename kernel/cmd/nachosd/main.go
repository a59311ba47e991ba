// Command nachosd boots a nachos system: a scheduler, a disk, and an
// initial process, and runs that process until it halts. It then brings up
// the idle CPU workers and blocks in them; their context is never
// cancelled, so the command does not exit on its own after a halt.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdave1/nachos/kernel"
)

var (
	cfgFile     string
	numSectors  int
	numCPUs     int
	initProgram string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "nachosd",
	Short: "Run a nachos kernel simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		cfg := kernel.Config{
			NumSectors:  viper.GetInt("sectors"),
			NumCPUs:     viper.GetInt("cpus"),
			InitProgram: viper.GetString("init"),
		}

		dev := kernel.NewStdioDevice()
		sys := kernel.Boot(cfg, dev)
		defer sys.Shutdown()

		space := kernel.NewSimpleAddrSpace(8, 4)
		m := kernel.NewSimpleMachine(64 * 1024)
		if err := sys.StartInit(cfg, space, m); err != nil {
			return err
		}

		return sys.BringUpCPUs(context.Background(), cfg.NumCPUs, func(ctx context.Context, cpu int) error {
			<-ctx.Done()
			return nil
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.nachosd.yaml)")
	rootCmd.PersistentFlags().IntVar(&numSectors, "sectors", 4096, "number of disk sectors to format")
	rootCmd.PersistentFlags().IntVar(&numCPUs, "cpus", 1, "number of simulated CPUs to bring up")
	rootCmd.PersistentFlags().StringVar(&initProgram, "init", "init", "name of the first program to run")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level (debug, info, warn, error)")

	viper.BindPFlag("sectors", rootCmd.PersistentFlags().Lookup("sectors"))
	viper.BindPFlag("cpus", rootCmd.PersistentFlags().Lookup("cpus"))
	viper.BindPFlag("init", rootCmd.PersistentFlags().Lookup("init"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".nachosd")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("nachosd")
	viper.AutomaticEnv()
	// A missing config file is fine; flags and env vars still apply.
	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
