// Copyright 2026 The Gantry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vkramanuj/beaker-gantry/pkg/api"
	"github.com/vkramanuj/beaker-gantry/pkg/client"
	"github.com/vkramanuj/beaker-gantry/pkg/logging"
	"github.com/vkramanuj/beaker-gantry/pkg/spec"
)

var clusterShowCloud bool

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.AddCommand(clusterListCmd)
	clusterCmd.AddCommand(clusterUtilCmd)
	clusterCmd.AddCommand(clusterAllowPreemptibleCmd)
	clusterCmd.AddCommand(clusterDisallowPreemptibleCmd)

	clusterListCmd.Flags().BoolVar(&clusterShowCloud, "cloud", false, "Only show cloud clusters.")
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Get information on clusters.",
}

var clusterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available clusters. By default only on-premise clusters are shown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient()
		if err != nil {
			return err
		}
		clusters, err := c.ListClusters(ctx)
		if err != nil {
			return err
		}
		for _, cl := range clusters {
			if cl.IsCloud != clusterShowCloud {
				continue
			}
			fmt.Println(color.MagentaString(cl.FullName))
			nodes, err := c.ListClusterNodes(ctx, cl.FullName)
			if err != nil {
				return err
			}
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].Hostname < nodes[j].Hostname })
			for _, n := range nodes {
				fmt.Printf("  %s - %s\n", color.CyanString(n.Hostname), formatResources(n.Limits))
			}
			if cl.NodeSpec != nil {
				fmt.Printf("  %s\n", formatResources(*cl.NodeSpec))
			}
		}
		return nil
	},
}

var clusterUtilCmd = &cobra.Command{
	Use:   "util CLUSTER",
	Short: "Get the current status and utilization for a cluster.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		util, err := c.ClusterUtilization(cmd.Context(), args[0])
		if client.IsNotFound(err) {
			return spec.ConfigErrorf("cluster '%s' not found", args[0])
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s\n\nrunning jobs: %d (%d preemptible)\nqueued jobs: %d\n",
			color.MagentaString(util.Cluster.FullName),
			util.RunningJobs, util.RunningPreemptibleJobs, util.QueuedJobs)
		if len(util.Nodes) == 0 {
			return nil
		}
		fmt.Println("nodes:")
		nodes := util.Nodes
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Hostname < nodes[j].Hostname })
		for _, n := range nodes {
			fmt.Printf("  %s - %d jobs (%d preemptible)\n    CPUs free: %s\n    GPUs free: %s %s\n",
				color.CyanString(n.Hostname), n.RunningJobs, n.RunningPreemptibleJobs,
				freeCount(n.Free.CPUCount > 0, fmt.Sprintf("%g / %g", n.Free.CPUCount, n.Limits.CPUCount)),
				freeCount(n.Free.GPUCount > 0, fmt.Sprintf("%d / %d", n.Free.GPUCount, n.Limits.GPUCount)),
				n.Free.GPUType)
		}
		return nil
	},
}

var clusterAllowPreemptibleCmd = &cobra.Command{
	Use:   "allow-preemptible CLUSTER",
	Short: "Allow preemptible jobs on the cluster.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setClusterPreemptible(cmd, args[0], true)
	},
}

var clusterDisallowPreemptibleCmd = &cobra.Command{
	Use:   "disallow-preemptible CLUSTER",
	Short: "Disallow preemptible jobs on the cluster.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setClusterPreemptible(cmd, args[0], false)
	},
}

func setClusterPreemptible(cmd *cobra.Command, cluster string, allow bool) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if _, err := c.UpdateCluster(cmd.Context(), cluster, api.ClusterPatch{AllowPreemptible: &allow}); err != nil {
		if client.IsNotFound(err) {
			return spec.ConfigErrorf("cluster '%s' not found", cluster)
		}
		return err
	}
	if allow {
		logging.Info("Preemptible jobs allowed on %s", cluster)
	} else {
		logging.Info("Preemptible jobs disallowed on %s", cluster)
	}
	return nil
}

func formatResources(r api.NodeResources) string {
	s := fmt.Sprintf("CPUs: %g, GPUs: %d", r.CPUCount, r.GPUCount)
	if r.GPUType != "" {
		s += " x " + r.GPUType
	}
	return s
}

func freeCount(free bool, s string) string {
	if free {
		return color.GreenString(s)
	}
	return color.RedString(s)
}
