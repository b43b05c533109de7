package main

import (
	"log"
	"os"

	"github.com/phil-mansfield/table"
	plt "github.com/phil-mansfield/pyplot"
)

// Plots the energy history table written by a gopic run.

func main() {
	if len(os.Args) != 3 {
		log.Fatalf("Usage: $ %s energy_file plot_file", os.Args[0])
	}
	energyFile, plotFile := os.Args[1], os.Args[2]

	cols, err := table.ReadTable(energyFile, []int{1, 2, 3, 4}, nil)
	if err != nil {
		log.Fatal(err.Error())
	}
	ts, fieldE, kinE, totE := cols[0], cols[1], cols[2], cols[3]

	plt.Reset()
	plt.Figure()

	plt.Plot(ts, fieldE, plt.LW(2), plt.C("DarkSlateBlue"))
	plt.Plot(ts, kinE, plt.LW(2), plt.C("DarkTurquoise"))
	plt.Plot(ts, totE, "k", plt.LW(3))

	plt.Title("Field, kinetic, and total energy")
	plt.XLabel(`$t$ $[1/\omega_p]$`, plt.FontSize(16))
	plt.YLabel(`$E$ $[m_e c^2 n_0]$`, plt.FontSize(16))

	plt.SaveFig(plotFile)
	plt.Execute()
}
