package resources

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/confsync/confsync/internal/interfaces"
)

// The envelope structs capture the structurally required portion of each
// resource type's field mapping. The full raw mapping remains the payload
// sent to the remote API; envelopes exist only for validation and reference
// extraction.

var validate = validator.New()

// decodeEnvelope decodes a raw field mapping into the given envelope struct
// and runs struct validation. Decode errors name the offending field.
func decodeEnvelope(fields map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: false,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return fmt.Errorf("invalid field shape: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("missing or invalid required field: %w", err)
	}
	return nil
}

type spaceEnvelope struct {
	Space       string `mapstructure:"space" validate:"required"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

func extractSpace(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env spaceEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	return env.Space, nil, nil
}

type dataSetEnvelope struct {
	ExternalID     string `mapstructure:"externalId" validate:"required"`
	Name           string `mapstructure:"name" validate:"required"`
	Description    string `mapstructure:"description"`
	WriteProtected bool   `mapstructure:"writeProtected"`
}

func extractDataSet(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env dataSetEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	return env.ExternalID, nil, nil
}

type groupEnvelope struct {
	Name         string                   `mapstructure:"name" validate:"required"`
	SourceID     string                   `mapstructure:"sourceId"`
	Capabilities []map[string]interface{} `mapstructure:"capabilities"`
	Metadata     map[string]string        `mapstructure:"metadata"`
}

func extractGroup(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env groupEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	return env.Name, nil, nil
}

type containerEnvelope struct {
	Space      string                 `mapstructure:"space" validate:"required"`
	ExternalID string                 `mapstructure:"externalId" validate:"required"`
	Name       string                 `mapstructure:"name"`
	UsedFor    string                 `mapstructure:"usedFor"`
	Properties map[string]interface{} `mapstructure:"properties" validate:"required"`
}

func extractContainer(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env containerEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	refs := []interfaces.ResourceKey{
		interfaces.MakeResourceKey(interfaces.TypeSpace, env.Space),
	}
	return env.ExternalID, refs, nil
}

type viewReference struct {
	Space      string `mapstructure:"space"`
	ExternalID string `mapstructure:"externalId" validate:"required"`
	Version    string `mapstructure:"version"`
}

type viewEnvelope struct {
	Space      string                 `mapstructure:"space" validate:"required"`
	ExternalID string                 `mapstructure:"externalId" validate:"required"`
	Version    string                 `mapstructure:"version" validate:"required"`
	Name       string                 `mapstructure:"name"`
	Implements []viewReference        `mapstructure:"implements"`
	Properties map[string]interface{} `mapstructure:"properties"`
}

func extractView(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env viewEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	refs := []interfaces.ResourceKey{
		interfaces.MakeResourceKey(interfaces.TypeSpace, env.Space),
	}
	for _, impl := range env.Implements {
		refs = append(refs, interfaces.MakeResourceKey(interfaces.TypeView, impl.ExternalID))
	}
	return env.ExternalID, refs, nil
}

type transformationEnvelope struct {
	ExternalID        string                 `mapstructure:"externalId" validate:"required"`
	Name              string                 `mapstructure:"name" validate:"required"`
	Query             string                 `mapstructure:"query" validate:"required"`
	Destination       map[string]interface{} `mapstructure:"destination" validate:"required"`
	DataSetExternalID string                 `mapstructure:"dataSetExternalId"`
	Schedule          map[string]interface{} `mapstructure:"schedule"`
}

func extractTransformation(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env transformationEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	var refs []interfaces.ResourceKey
	if env.DataSetExternalID != "" {
		refs = append(refs, interfaces.MakeResourceKey(interfaces.TypeDataSet, env.DataSetExternalID))
	}
	return env.ExternalID, refs, nil
}

type nodeEnvelope struct {
	Space      string                 `mapstructure:"space" validate:"required"`
	ExternalID string                 `mapstructure:"externalId" validate:"required"`
	View       *viewReference         `mapstructure:"view"`
	Properties map[string]interface{} `mapstructure:"properties"`
}

func extractNode(fields map[string]interface{}) (string, []interfaces.ResourceKey, error) {
	var env nodeEnvelope
	if err := decodeEnvelope(fields, &env); err != nil {
		return "", nil, err
	}
	refs := []interfaces.ResourceKey{
		interfaces.MakeResourceKey(interfaces.TypeSpace, env.Space),
	}
	if env.View != nil {
		refs = append(refs, interfaces.MakeResourceKey(interfaces.TypeView, env.View.ExternalID))
	}
	return env.ExternalID, refs, nil
}
