package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/phil-mansfield/gopic"
	"github.com/phil-mansfield/gopic/io"
)

// FileGroup contains utility files for logging and writing profiles to.
type FileGroup struct {
	log, prof *os.File
}

// Close closes the files inside FileGroup.
func (fg *FileGroup) Close() {
	if fg.log != nil {
		if err := fg.log.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		if err := fg.prof.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var (
		runStr, exampleConfig string
		logFlag               bool
	)
	vars := map[string]*string{
		"Run":           &runStr,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(
		&runStr, "Run", "",
		"Configuration file for [Run] mode: advances the simulation it "+
			"describes to TMax and writes diagnostics along the way.",
	)
	flag.StringVar(
		&exampleConfig, "ExampleConfig", "",
		"Prints an example configuration file of the specified type to "+
			"stdout. 'Simulation' is the only accepted argument.",
	)
	flag.BoolVar(
		&logFlag, "Log", false,
		"Prints progress and energy information while running.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Run":
		con, err := io.ReadSimulationConfig(runStr)
		if err != nil {
			log.Fatal(err.Error())
		}

		fg := setupIO(&con.Simulation)
		defer fg.Close()

		runMain(con, logFlag)

	case "ExampleConfig":
		switch exampleConfig {
		case "Simulation":
			fmt.Println(io.ExampleSimulationFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only " +
					"recognized argument is 'Simulation'.",
			)
		}
	default:
		panic("Impossible")
	}
}

// getModeName returns the name of the mode and fails with a descriptive
// error if the user provided less or more than one mode flag.
func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but gopic only accepts "+
				"one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

// setupIO redirects logging and starts profiling when the configuration
// asks for them.
func setupIO(con *io.SimConfig) *FileGroup {
	var err error
	fg := new(FileGroup)

	if con.LogFile != "" {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.ProfileFile != "" {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err = pprof.StartCPUProfile(fg.prof); err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}

// runMain advances the configured simulation to completion.
func runMain(con *io.SimulationConfig, logFlag bool) {
	sim, err := gopic.NewSimulation(con, logFlag)
	if err != nil {
		log.Fatal(err.Error())
	}

	if err := sim.Run(); err != nil {
		log.Fatal(err.Error())
	}

	if logFlag {
		log.Printf("Finished at iter %d, t = %.3f.", sim.Iter, sim.Time())
	}
}
