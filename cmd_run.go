/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/spf13/cobra"
)

var flagOutput string

var runCmd = &cobra.Command{
	Use:   "run [report]",
	Short: "Respond to one incident report and print the trail",
	Long: `run executes the response sequence for the report given as arguments,
or read from stdin when no argument is given.`,
	Example: `  metro run "Train breakdown at Central Station on Line 2"
  echo "Signal failure near Riverside" | metro run -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(b)
		}
		format, err := parseFormat(flagOutput)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.reporter.Run(cmd.Context(), text)
		if err != nil {
			return err
		}
		out, err := formatResult(res, format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the response steps in execution order",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(flagOutput)
		if err != nil {
			return err
		}
		out, err := formatSteps(incident.DefaultRegistry(), format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, stepsCmd} {
		c.Flags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml or markdown")
		rootCmd.AddCommand(c)
	}
}
