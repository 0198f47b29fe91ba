// Copyright © 2023-2026 ChainMap Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/q-bio/ChainMap/chainmap/chain"
	"github.com/q-bio/ChainMap/chainmap/psl"
	"github.com/q-bio/ChainMap/chainmap/twobit"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "chain PSL alignments into collinear chains",
	Long: `Chain PSL alignments into collinear chains

Processing:
  1. Group PSL blocks by target sequence, query sequence and query strand.
  2. Within each group, search the best predecessor of every block with a
     2-D tree over (query start, target start), and connect blocks with
     dynamic programming: score = blockScore + max(predScore - gapCost).
  3. Peel chains from the highest-scoring blocks, trim overlaps between
     adjacent blocks at the best crossover point, and rescore exactly
     against the 2bit sequences when they are given.
  4. Output chains above the score cutoff, sorted by score.

Gap costs:
  The default cost tables suit human/mouse distance; use --linear-gap
  loose for distant species (e.g. chicken/human). Both --gap-open and
  --gap-extend switch to affine costs, and --gap-profile loads custom
  piecewise-linear tables from a TOML file.

Examples:
  1. With exact rescoring against the genomes:
       chainmap chain -t t.2bit -q q.2bit in.psl.gz -o out.chain.gz
  2. Heuristic scores only, for quick inspection:
       chainmap chain in.psl -o out.chain
  3. All PSL files of a directory:
       chainmap chain --in-dir psl/ -t t.2bit -q q.2bit -o out.chain

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile)
		}
		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		outFile := getFlagString(cmd, "out-file")
		targetFile := getFlagString(cmd, "target")
		queryFile := getFlagString(cmd, "query")
		minScore := getFlagNonNegativeFloat64(cmd, "min-score")
		inDir := getFlagString(cmd, "in-dir")
		scoreScheme := getFlagString(cmd, "score-scheme")

		// input files
		files := args
		if inDir != "" {
			if len(files) > 0 {
				checkError(fmt.Errorf("given PSL files, the flag --in-dir is not allowed"))
			}
			isDir, err := pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking --in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of --in-dir should be a directory: %s", inDir))
			}
			pattern, err := regexp.Compile(getFlagString(cmd, "file-regexp"))
			checkError(err)
			files, err = getFileListFromDir(inDir, pattern, opt.NumCPUs)
			checkError(err)
			if len(files) == 0 {
				checkError(fmt.Errorf("no PSL files found in: %s", inDir))
			}
		} else if len(files) == 0 {
			files = []string{"-"}
		} else {
			for _, file := range files {
				if isStdin(file) {
					continue
				}
				ok, err := pathutil.Exists(file)
				checkError(err)
				if !ok {
					checkError(fmt.Errorf("input file not found: %s", file))
				}
			}
		}

		gapCalc := gapCalcFromFlags(cmd)

		var matrix *chain.SubMatrix
		if scoreScheme == "" {
			matrix = chain.DefaultSubMatrix()
		} else {
			var err error
			matrix, err = chain.SubMatrixFromName(scoreScheme)
			checkError(err)
		}

		withSeqs := targetFile != "" && queryFile != ""
		if (targetFile == "") != (queryFile == "") {
			checkError(fmt.Errorf("flags -t/--target and -q/--query must be given together"))
		}
		if opt.Verbose || opt.Log2File {
			if withSeqs {
				log.Infof("rescoring blocks with target: %s, query: %s", targetFile, queryFile)
			} else {
				log.Info("no 2bit files given, keeping heuristic block scores")
			}
		}

		// ---------------------------------------------------------------
		// read PSL records and group blocks

		groups, nRecords := readGroups(files)
		if opt.Verbose || opt.Log2File {
			log.Infof("read %d PSL records into %d groups from %d file(s)", nRecords, len(groups), len(files))
		}

		// deterministic processing order
		keys := make([]groupKey, 0, len(groups))
		for key := range groups {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := keys[i], keys[j]
			if a.tName != b.tName {
				return a.tName < b.tName
			}
			if a.qName != b.qName {
				return a.qName < b.qName
			}
			return a.qStrand < b.qStrand
		})

		// ---------------------------------------------------------------
		// chain groups concurrently

		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var doneDuration chan int
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(keys)),
				mpb.PrependDecorators(
					decor.Name("processed groups: ", decor.WC{W: len("processed groups: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
			chDuration = make(chan time.Duration, opt.NumCPUs)
			doneDuration = make(chan int)
			go func() {
				for t := range chDuration {
					bar.EwmaIncrBy(1, t)
				}
				doneDuration <- 1
			}()
		}

		allChains := make(chain.Chains, 0, 1024)
		var mu sync.Mutex

		chJob := make(chan groupKey, opt.NumCPUs)
		var wg sync.WaitGroup
		for i := 0; i < opt.NumCPUs; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				// 2bit readers are seek-stateful, one pair per worker
				var sc *chain.ScoreContext
				if withSeqs {
					tf, err := twobit.Open(targetFile)
					checkError(err)
					defer tf.Close()
					qf, err := twobit.Open(queryFile)
					checkError(err)
					defer qf.Close()
					sc = &chain.ScoreContext{Target: tf, Query: qf, Matrix: matrix}
				}

				chainer := chain.NewChainer(&chain.ChainingOptions{
					GapCalc:  gapCalc,
					MinScore: minScore,
				})

				for key := range chJob {
					t := time.Now()
					group := groups[key]

					sort.Slice(group.Blocks, func(i, j int) bool {
						a, b := &group.Blocks[i], &group.Blocks[j]
						if a.TStart != b.TStart {
							return a.TStart < b.TStart
						}
						return a.QStart < b.QStart
					})

					if sc != nil {
						for i := range group.Blocks {
							if exact, ok := sc.BlockScore(&group.Blocks[i], group); ok {
								group.Blocks[i].Score = exact
							}
						}
					}

					// ids are renumbered after the global sort
					var id uint64
					chains := chainer.Chain(group, sc, &id)

					mu.Lock()
					allChains = append(allChains, chains...)
					mu.Unlock()

					if opt.Verbose {
						chDuration <- time.Since(t)
					}
				}
			}()
		}
		for _, key := range keys {
			chJob <- key
		}
		close(chJob)
		wg.Wait()

		if opt.Verbose {
			close(chDuration)
			<-doneDuration
			pbs.Wait()
		}

		// ---------------------------------------------------------------
		// sort by score, assign ids, write

		sorts.Quicksort(allChains)
		for i, c := range allChains {
			c.Header.ID = uint64(i + 1)
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		for _, c := range allChains {
			checkError(c.WriteTo(outfh))
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("%d chains saved to %s", len(allChains), outFile)
		}
	},
}

type groupKey struct {
	tName   string
	qName   string
	qStrand byte
}

// readGroups reads PSL files and collects their blocks into chaining
// groups, one per (target, query, query strand). Block scores start as
// the length heuristic.
func readGroups(files []string) (map[groupKey]*chain.Group, int) {
	groups := make(map[groupKey]*chain.Group, 64)
	var nRecords int

	for _, file := range files {
		reader, err := psl.NewReader(file)
		checkError(err)

		for {
			rec, err := reader.Next()
			checkError(err)
			if rec == nil {
				break
			}
			nRecords++

			if rec.TStrand() == '-' {
				log.Warningf("skipping PSL record with negative target strand: %s %s %s",
					rec.QName, rec.Strand, rec.TName)
				continue
			}

			key := groupKey{tName: rec.TName, qName: rec.QName, qStrand: rec.QStrand()}
			group, ok := groups[key]
			if !ok {
				group = &chain.Group{
					TName: rec.TName, TSize: uint64(rec.TSize),
					QName: rec.QName, QSize: uint64(rec.QSize),
					QStrand: rec.QStrand(),
					Blocks:  make([]chain.Block, 0, 8),
				}
				groups[key] = group
			}

			for i := uint32(0); i < rec.BlockCount; i++ {
				size := uint64(rec.BlockSizes[i])
				ts := uint64(rec.TStarts[i])
				qs := uint64(rec.QStarts[i])
				group.Blocks = append(group.Blocks, chain.Block{
					TStart: ts, TEnd: ts + size,
					QStart: qs, QEnd: qs + size,
					Score: float64(size) * 100,
				})
			}
		}

		checkError(reader.Close())
	}

	return groups, nRecords
}

// gapCalcFromFlags builds the gap calculator: a TOML profile wins, then
// affine costs when both --gap-open and --gap-extend are set, then the
// --linear-gap preset.
func gapCalcFromFlags(cmd *cobra.Command) *chain.GapCalc {
	profile := getFlagString(cmd, "gap-profile")
	gapOpen := getFlagNonNegativeInt(cmd, "gap-open")
	gapExtend := getFlagNonNegativeInt(cmd, "gap-extend")
	linearGap := getFlagString(cmd, "linear-gap")

	if profile != "" {
		gapCalc, err := chain.GapCalcFromFile(profile)
		checkError(err)
		return gapCalc
	}
	if gapOpen > 0 || gapExtend > 0 {
		if gapOpen == 0 || gapExtend == 0 {
			checkError(fmt.Errorf("flags --gap-open and --gap-extend must be given together"))
		}
		return chain.AffineGapCalc(gapOpen, gapExtend)
	}
	switch linearGap {
	case "medium":
		return chain.MediumGapCalc()
	case "loose":
		return chain.LooseGapCalc()
	}
	checkError(fmt.Errorf("invalid value of --linear-gap: %s (medium or loose)", linearGap))
	return nil
}

func init() {
	RootCmd.AddCommand(chainCmd)

	chainCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Output chain file, with .gz for gzipped-compressed output ("-" for stdout).`))

	chainCmd.Flags().StringP("target", "t", "",
		formatFlagUsage(`Target genome 2bit file, for exact rescoring and overlap trimming.`))

	chainCmd.Flags().StringP("query", "q", "",
		formatFlagUsage(`Query genome 2bit file, for exact rescoring and overlap trimming.`))

	chainCmd.Flags().StringP("in-dir", "", "",
		formatFlagUsage(`Directory containing input PSL files. Directory symlinks are followed.`))

	chainCmd.Flags().StringP("file-regexp", "", `\.psl(\.gz)?$`,
		formatFlagUsage(`Regular expression for matching PSL files in --in-dir, case sensitive.`))

	chainCmd.Flags().StringP("linear-gap", "", "medium",
		formatFlagUsage(`Linear gap cost preset: medium (human/mouse) or loose (chicken/human).`))

	chainCmd.Flags().IntP("gap-open", "", 0,
		formatFlagUsage(`Affine gap open cost, overrides --linear-gap (requires --gap-extend).`))

	chainCmd.Flags().IntP("gap-extend", "", 0,
		formatFlagUsage(`Affine gap extension cost, overrides --linear-gap (requires --gap-open).`))

	chainCmd.Flags().StringP("gap-profile", "", "",
		formatFlagUsage(`TOML file with custom gap cost tables (positions, q_gap, t_gap, b_gap).`))

	chainCmd.Flags().StringP("score-scheme", "", "",
		formatFlagUsage(`Substitution matrix: a preset name (HoxD55) or a BLAST/LASTZ-style file.`))

	chainCmd.Flags().Float64P("min-score", "", 0,
		formatFlagUsage(`Minimum score of chains to output.`))
}
