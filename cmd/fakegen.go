package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/starpipe/fake"
	"github.com/spf13/cobra"
)

// FakegenMain is wrapped by NewFakegenCommand and only exported for testing purposes.
var FakegenMain *fake.Main

// NewFakegenCommand returns a new cobra command wrapping FakegenMain.
func NewFakegenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	FakegenMain = fake.NewMain()
	fakegenCommand := &cobra.Command{
		Use:   "fakegen",
		Short: "generate a sample catalog and play log data set on disk",
		Long: `Writes a deterministic sample data set - a directory of song
catalog json and a directory of play log json - in the layout the file
command reads. Useful for trying the loader without real data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return FakegenMain.Run()
		},
	}
	flags := fakegenCommand.Flags()
	err = commandeer.Flags(flags, FakegenMain)
	if err != nil {
		panic(err)
	}
	return fakegenCommand
}

func init() {
	subcommandFns["fakegen"] = NewFakegenCommand
}
