package output_test

import (
	"fmt"

	"github.com/blackwell-systems/snaprotate/internal/output"
)

// Example showing the pass summary line
func ExampleFormatProcessed() {
	fmt.Println(output.FormatProcessed(3))
	// Output: Processed 3 subvolumes
}

// Example showing how to render the inventory of a subvolume
func ExampleRenderInventoryTable() {
	rows := []output.InventoryRow{
		{Subvolume: "/home", Class: "hourly", Keep: 24, Count: 12, Newest: "2024-03-05-140000_hourly"},
		{Subvolume: "/home", Class: "daily", Keep: 7, Count: 0, Due: true},
	}

	fmt.Print(output.RenderInventoryTable(rows))
}
