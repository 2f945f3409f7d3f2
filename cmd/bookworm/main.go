// Copyright 2024 bookworm Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base/log"
	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/pipeline"
	"github.com/bookworm-io/bookworm/recommend"
)

const version = "0.1.0"

var rootCommand = &cobra.Command{
	Use:   "bookworm",
	Short: "A collaborative-filtering book recommender.",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println("bookworm", version)
			return
		}
		_ = cmd.Help()
	},
}

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Run the full training pipeline: ingest, validate, transform, fit.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		p := pipeline.NewTrainingPipeline(conf, log.Logger())
		if err := p.Run(context.Background()); err != nil {
			log.Logger().Fatal("training pipeline failed", zap.Error(err))
		}
	},
}

var titlesCommand = &cobra.Command{
	Use:   "titles",
	Short: "List the selectable book titles.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		r := newRecommender(conf)
		for _, title := range r.ListTitles() {
			fmt.Println(title)
		}
	},
}

var recommendCommand = &cobra.Command{
	Use:   "recommend [title]",
	Short: "Recommend books similar to the given title.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		r := newRecommender(conf)
		titles, posters, err := r.Recommend(args[0])
		if err != nil {
			log.Logger().Fatal("recommendation failed", zap.Error(err))
		}
		// the first entry is the queried title itself, show the rest
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"#", "Title", "Cover"})
		for i := 1; i < len(titles); i++ {
			table.Append([]string{strconv.Itoa(i), titles[i], posters[i]})
		}
		table.Render()
	},
}

func loadConfig(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Root().PersistentFlags().GetBool("debug")
	log.SetLogger(cmd.Root().PersistentFlags(), debug)
	if cmd.Root().PersistentFlags().Changed("config") {
		configPath, _ := cmd.Root().PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		return conf
	}
	return config.LoadDefaultConfig()
}

func newRecommender(conf *config.Config) *recommend.Recommender {
	r, err := recommend.NewRecommender(conf.Pretrained, conf.ModelTrainer.NumNeighbors, log.Logger())
	if err != nil {
		log.Logger().Fatal("failed to load pretrained artifacts", zap.Error(err))
	}
	return r
}

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug logging mode")
	rootCommand.PersistentFlags().BoolP("version", "v", false, "bookworm version")
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(trainCommand, titlesCommand, recommendCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
