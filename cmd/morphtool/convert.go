package main

import (
	"encoding/json"
	"io/ioutil"

	"github.com/jsccast/yaml"
	"github.com/spf13/cobra"
)

func runYAMLToJSON(cmd *cobra.Command, args []string) error {
	bs, err := ioutil.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var x interface{}
	if err = yaml.Unmarshal(bs, &x); err != nil {
		return err
	}

	if prettyJSON {
		bs, err = json.MarshalIndent(&x, "", "  ")
	} else {
		bs, err = json.Marshal(&x)
	}
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(append(bs, '\n'))
	return err
}

func runJSONToYAML(cmd *cobra.Command, args []string) error {
	bs, err := ioutil.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var x interface{}
	if err = json.Unmarshal(bs, &x); err != nil {
		return err
	}

	if bs, err = yaml.Marshal(&x); err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(bs)
	return err
}
