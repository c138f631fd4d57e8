package main

import (
	"fmt"

	"datastage/pkg/registry"
	"datastage/pkg/storage"
	"datastage/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	accentColor  = lipgloss.Color("#50FA7B")
	warningColor = lipgloss.Color("#FFB86C")
	mutedColor   = lipgloss.Color("#6272A4")
	fgColor      = lipgloss.Color("#F8F8F2")
	bgLightColor = lipgloss.Color("#44475A")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD")).
			Background(bgLightColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().Padding(0, 1)

	presentStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	promotableStyle = lipgloss.NewStyle().Foreground(warningColor)
	absentStyle     = lipgloss.NewStyle().Foreground(mutedColor)
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which tiers currently hold each registered dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			printTierTable(reg)
			printDatasetTable(reg)
			return nil
		},
	}
}

func printTierTable(reg *registry.Registry) {
	t := newTable()
	t.Headers("TIER", "ROOT", "WRITABLE", "CLASS", "CAPACITY")

	for _, tier := range reg.Tiers() {
		writable := "read-only"
		if tier.Writable {
			writable = "writable"
		}
		capacity := "-"
		if tier.Capacity > 0 {
			capacity = utils.FormatDataSize(tier.Capacity)
		}
		t.Row(tier.Name, tier.Root, writable, string(tier.CapacityClass), capacity)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Cluster: %s", reg.Cluster())))
	fmt.Println(t.Render())
}

func printDatasetTable(reg *registry.Registry) {
	datasets := reg.Datasets()
	if len(datasets) == 0 {
		fmt.Println(absentStyle.Render("No datasets registered in this profile"))
		return
	}

	tiers := reg.Tiers()
	headers := []string{"DATASET", "SIZE"}
	for _, tier := range tiers {
		headers = append(headers, tier.Name)
	}

	t := newTable()
	t.Headers(headers...)

	for _, ds := range datasets {
		size := "-"
		if ds.Size > 0 {
			size = utils.FormatDataSize(ds.Size)
		}
		present := make([]bool, len(tiers))
		anywhere := false
		for i := range tiers {
			present[i] = storage.AllPresent(ds.Files, reg.DatasetRootIn(ds, &tiers[i]))
			anywhere = anywhere || present[i]
		}

		row := []string{string(ds.ID), size}
		for i := range tiers {
			switch {
			case present[i]:
				row = append(row, presentStyle.Render("present"))
			case anywhere && tiers[i].Writable && !reg.TooLargeFor(ds, &tiers[i]):
				row = append(row, promotableStyle.Render("promotable"))
			default:
				row = append(row, absentStyle.Render("-"))
			}
		}
		t.Row(row...)
	}

	fmt.Println(t.Render())
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(bgLightColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return rowStyle.Copy().Foreground(fgColor)
		})
}
