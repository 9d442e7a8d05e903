package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tsawler/go-metal/checkpoints"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/frvtface/internal/inference"
)

func main() {
	libPath := flag.String("ort-lib", os.Getenv("FRVT_ORT_LIB"), "Path to the ONNX Runtime shared library")
	metal := flag.Bool("metal", false, "Also try importing the model with go-metal")
	flag.Usage = func() {
		fmt.Println("Usage: modelcheck [flags] <model.onnx>")
		fmt.Println("\nThis tool checks that ONNX Runtime can load a model and prints its graph names.")
		fmt.Println()
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	modelPath := flag.Arg(0)
	fmt.Printf("Checking ONNX model: %s\n", modelPath)

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		fmt.Printf("Error: File not found: %s\n", modelPath)
		os.Exit(1)
	}

	fmt.Println("Initializing ONNX Runtime...")
	if err := inference.Initialize(*libPath); err != nil {
		fmt.Printf("❌ %v\n", err)
		fmt.Println("\nSet -ort-lib or FRVT_ORT_LIB to the onnxruntime shared library")
		os.Exit(1)
	}
	defer inference.Shutdown()

	fmt.Println("✓ ONNX Runtime initialized")

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		fmt.Printf("❌ Failed to get model info: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nInputs (%d):\n", len(inputs))
	for _, info := range inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}

	fmt.Printf("\nOutputs (%d):\n", len(outputs))
	for _, info := range outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}

	fmt.Println("\nMetadata:")
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		fmt.Printf("  (Could not read metadata: %v)\n", err)
	} else {
		if producer, err := metadata.GetProducerName(); err == nil {
			fmt.Printf("  Producer: %s\n", producer)
		}
		if version, err := metadata.GetVersion(); err == nil {
			fmt.Printf("  Version: %d\n", version)
		}
		if domain, err := metadata.GetDomain(); err == nil {
			fmt.Printf("  Domain: %s\n", domain)
		}
		metadata.Destroy()
	}

	if !*metal {
		return
	}

	fmt.Println("\nAttempting to import with go-metal...")
	checkpoint, err := checkpoints.NewONNXImporter().ImportFromONNX(modelPath)
	if err != nil {
		fmt.Printf("❌ go-metal import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ go-metal: %d layers, %d weight tensors\n",
		len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
}
