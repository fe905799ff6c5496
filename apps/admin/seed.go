package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/scholarship"
)

// seedScholarships loads a JSON array of scholarships into the catalog.
// Nothing is created unless every entry is valid.
func (cli *commandLine) seedScholarships(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading seed file")
	}
	var list []scholarship.NewScholarship
	if err = json.Unmarshal(data, &list); err != nil {
		return errors.Wrap(err, "decoding seed file")
	}

	n, err := cli.schSvc.Seed(context.Background(), list)
	if err != nil {
		return err
	}
	fmt.Printf("%d scholarships created\n", n)
	return nil
}
