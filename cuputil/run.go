/*
Copyright © 2025 the cup authors.
This file is part of cup.

cup is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cup is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cup.  If not, see <http://www.gnu.org/licenses/>.
*/

package cuputil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chengcli/cup"
	"github.com/spf13/cobra"

	// The built-in absorber and solver kinds register themselves when
	// their packages are imported.
	_ "github.com/chengcli/cup/rtsolver/beerlam"
	_ "github.com/chengcli/cup/rtsolver/twostream"
	_ "github.com/chengcli/cup/science/absorb/cia"
	_ "github.com/chengcli/cup/science/absorb/hgcloud"
	_ "github.com/chengcli/cup/science/absorb/tabgas"
)

// Run processes every column file of the scenario and writes one flux
// file per column into the scenario's output directory.
//
// CobraCommand is the cobra.Command instance where Run is called from.
//
// LogFile is the path to the desired logfile location. It can include
// environment variables.
//
// NumWorkers is the number of columns processed concurrently; zero or
// less selects one worker per processor. Each worker carries its own
// clone of the radiation model, so the results do not depend on the
// worker count.
func Run(CobraCommand *cobra.Command, LogFile string, NumWorkers int, s *Scenario) error {
	startTime := time.Now()

	if len(s.ColumnFiles) == 0 {
		return fmt.Errorf("cup: there are no column files to process. Please fill in " +
			"the ColumnFiles configuration and try again.")
	}

	// Start a function to receive and print log messages.
	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("cup: problem creating log file: %v", err)
	}
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	log.SetOutput(mw)
	msgLog := make(chan string)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range msgLog {
			log.Println(msg)
		}
		wg.Done()
	}()
	defer func() { // Wait for the logging to finish.
		close(msgLog)
		wg.Wait()
		logfile.Close()
	}()

	log.Println("Loading absorber data...")
	rad, err := cup.NewRadiation(s.Radiation)
	if err != nil {
		return err
	}

	nworkers := NumWorkers
	if nworkers <= 0 {
		nworkers = runtime.GOMAXPROCS(0)
	}
	if nworkers > len(s.ColumnFiles) {
		nworkers = len(s.ColumnFiles)
	}
	workers := make([]*cup.Radiation, nworkers)
	workers[0] = rad
	for pp := 1; pp < nworkers; pp++ {
		if workers[pp], err = rad.Clone(); err != nil {
			return err
		}
	}

	log.Printf("Processing %d columns with %d workers...", len(s.ColumnFiles), nworkers)
	errChan := make(chan error, nworkers)
	var workerWG sync.WaitGroup
	workerWG.Add(nworkers)
	for pp := 0; pp < nworkers; pp++ {
		go func(pp int) {
			defer workerWG.Done()
			for ii := pp; ii < len(s.ColumnFiles); ii += nworkers {
				if err := runColumn(workers[pp], s.ColumnFiles[ii], s.OutputDir, msgLog); err != nil {
					errChan <- err
					return
				}
			}
		}(pp)
	}
	workerWG.Wait()
	close(errChan)
	if err := <-errChan; err != nil {
		return err
	}

	elapsedTime := time.Since(startTime)
	log.Printf("Elapsed time: %f seconds", elapsedTime.Seconds())

	return nil
}

// runColumn loads one column file, computes its fluxes, heating
// rates, and radiances, and writes the flux output file.
func runColumn(rad *cup.Radiation, columnFile, outputDir string, msgLog chan string) error {
	col, err := cup.LoadColumn(columnFile, rad.Species)
	if err != nil {
		return err
	}
	if err := rad.Run(col); err != nil {
		return fmt.Errorf("cup: processing column %q: %w", col.Name, err)
	}
	outFile := filepath.Join(outputDir, FluxFileName(columnFile))
	if err := cup.WriteFluxes(outFile, rad); err != nil {
		return err
	}
	msgLog <- fmt.Sprintf("Column %s: wrote %s", col.Name, outFile)
	return nil
}

// FluxFileName returns the name of the flux output file the run
// command writes for the column file at path p.
func FluxFileName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_flux.ncf"
}
