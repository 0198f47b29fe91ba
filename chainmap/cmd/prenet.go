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
	"strings"
	"time"

	"github.com/q-bio/ChainMap/chainmap/chain"
	"github.com/q-bio/ChainMap/chainmap/twobit"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

var prenetCmd = &cobra.Command{
	Use:   "prenet",
	Short: "remove chains that do not add new alignment before netting",
	Long: `Remove chains that do not add new alignment before netting

Chains must be sorted by score in descending order, which is how the
chain command writes them. A chain is kept only if some part of it
covers target and query regions not already covered by higher-scoring
chains. Kept chains mark their regions with --pad extra bases on each
side, so later chains need to clear more than a sliver. Chains whose
query is a haplotype or alternate sequence (name containing "_hap" or
"_alt") are dropped unless --incl-hap is given.

Sequence sizes are read from 2bit files, or from two-column text files
(name and size per line).

Examples:
  1. chainmap prenet in.chain target.2bit query.2bit -o out.chain
  2. chainmap prenet in.chain.gz t.sizes q.sizes -o out.chain.gz

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

		if len(args) != 3 {
			checkError(fmt.Errorf("3 arguments needed: in.chain target.sizes query.sizes"))
		}
		chainFile, targetFile, queryFile := args[0], args[1], args[2]

		outFile := getFlagString(cmd, "out-file")
		pad := getFlagNonNegativeInt(cmd, "pad")
		inclHap := getFlagBool(cmd, "incl-hap")

		targetSizes, err := readSeqSizes(targetFile)
		checkError(err)
		querySizes, err := readSeqSizes(queryFile)
		checkError(err)
		if opt.Verbose || opt.Log2File {
			log.Infof("read sizes of %d target and %d query sequences", len(targetSizes), len(querySizes))
		}

		fh, err := xopen.Ropen(chainFile)
		checkError(err)
		chains, err := chain.ReadChains(fh)
		checkError(err)
		checkError(fh.Close())

		filter := chain.NewPreNetFilter(&chain.PreNetOptions{
			Pad:            uint64(pad),
			KeepHaplotypes: inclHap,
		}, targetSizes, querySizes)

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		var nKept int
		for _, c := range chains {
			keep, err := filter.Keep(c)
			checkError(err)
			if !keep {
				continue
			}
			checkError(c.WriteTo(outfh))
			nKept++
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("%d of %d chains saved to %s", nKept, len(chains), outFile)
		}
	},
}

// readSeqSizes reads sequence sizes from a 2bit file or from a
// two-column text file.
func readSeqSizes(file string) (map[string]uint64, error) {
	if strings.HasSuffix(strings.ToLower(file), ".2bit") {
		f, err := twobit.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return f.Sizes()
	}
	return chain.ReadSizes(file)
}

func init() {
	RootCmd.AddCommand(prenetCmd)

	prenetCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Output chain file, with .gz for gzipped-compressed output ("-" for stdout).`))

	prenetCmd.Flags().IntP("pad", "", 1,
		formatFlagUsage(`Extra bases marked as covered on each side of kept chains.`))

	prenetCmd.Flags().BoolP("incl-hap", "", false,
		formatFlagUsage(`Include chains whose query is a _hap/_alt sequence.`))
}
