/*
Copyright © 2024 sunerpy <nkuzhangshn@gmail.com>
Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:
The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.
THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sunerpy/indexproxy/core"
)

var (
	cfgFile string
	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "indexproxy",
		Short: "indexproxy: a caching, rate-limited HTTP aggregation proxy for torrent-listing origins",
		Long: `indexproxy fetches, caches and re-serves listing/detail/download data from
one or more upstream aggregators, enforcing a per-origin request budget and
keeping an append-only ledger of every fetch.`,
		Example: `  # Run the single-origin indexer
  indexproxy serve --config ~/.indexproxy/config.toml
  # Run the multi-origin mirror façade
  indexproxy mirror --config ~/.indexproxy/config.toml
  # Generate shell completion for Bash
  indexproxy completion bash`,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.indexproxy/config.toml)")
}

// loadConfig wires viper and the logger once, shared by serve and mirror.
func loadConfig() {
	if _, err := core.InitViper(cfgFile); err != nil {
		color.Red("failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := core.InitLogger(); err != nil {
		color.Red("failed to init logger: %v\n", err)
		os.Exit(1)
	}
}
