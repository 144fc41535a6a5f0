package jenkins

import (
	"context"
	"errors"
	"testing"

	"jenkins-monitor/src/provider"
)

func TestProviderRegistered(t *testing.T) {
	p, err := provider.GetProvider("jenkins", provider.Credentials{BaseURL: "http://jenkins:8080"})
	if err != nil {
		t.Fatalf("GetProvider(jenkins) error = %v", err)
	}
	if p.Name() != "jenkins" {
		t.Errorf("Name() = %v, want jenkins", p.Name())
	}
}

func TestProvider_FetchPipeline(t *testing.T) {
	srv := newJenkins(t, map[string]string{
		"/api/json":                     `{"jobs":[{"name":"backend","url":"u","color":"blue"}]}`,
		"/job/backend/api/json":         `{"name":"backend","builds":[{"number":9},{"number":8},{"number":7}]}`,
		"/job/backend/9/api/json":       `{"number":9,"building":false,"result":"FAILURE","timestamp":1,"duration":2}`,
		"/job/backend/9/wfapi/describe": `{"id":"9","status":"FAILED","stages":[{"name":"Build","status":"SUCCESS"},{"name":"Test","status":"FAILED"}]}`,
		"/job/backend/9/consoleText":    "\x1b[8mha:AAAA\x1b[0m[Pipeline] { (Test)\r\n\x1b[31mERROR: boom\x1b[0m\r\n",
	})
	p := NewProvider(provider.Credentials{BaseURL: srv.URL, Username: "admin", Token: "secret"})
	ctx := context.Background()

	jobs, err := p.ListJobs(ctx)
	if err != nil || len(jobs) != 1 || jobs[0].Name != "backend" {
		t.Fatalf("ListJobs() = %+v, %v", jobs, err)
	}

	numbers, err := p.RecentBuilds(ctx, "backend", 2)
	if err != nil {
		t.Fatalf("RecentBuilds() error = %v", err)
	}
	if len(numbers) != 2 || numbers[0] != 9 || numbers[1] != 8 {
		t.Errorf("RecentBuilds() = %v, want [9 8]", numbers)
	}

	meta, err := p.FetchBuildMetadata(ctx, "backend", 9)
	if err != nil {
		t.Fatalf("FetchBuildMetadata() error = %v", err)
	}
	if meta.Result != "FAILURE" || meta.Building || meta.Duration != 2 {
		t.Errorf("FetchBuildMetadata() = %+v", meta)
	}

	stages, err := p.FetchStageList(ctx, "backend", 9)
	if err != nil {
		t.Fatalf("FetchStageList() error = %v", err)
	}
	if len(stages) != 2 || stages[1] != (provider.StageRecord{Name: "Test", Status: "FAILED"}) {
		t.Errorf("FetchStageList() = %+v", stages)
	}

	text, err := p.FetchConsoleText(ctx, "backend", 9)
	if err != nil {
		t.Fatalf("FetchConsoleText() error = %v", err)
	}
	if want := "[Pipeline] { (Test)\nERROR: boom"; text != want {
		t.Errorf("FetchConsoleText() = %q, want %q", text, want)
	}
}

func TestProvider_RunningBuildHasNoResult(t *testing.T) {
	srv := newJenkins(t, map[string]string{
		"/job/backend/10/api/json": `{"number":10,"building":true,"result":null,"timestamp":5,"duration":0}`,
	})
	p := NewProvider(provider.Credentials{BaseURL: srv.URL, Username: "admin", Token: "secret"})

	meta, err := p.FetchBuildMetadata(context.Background(), "backend", 10)
	if err != nil {
		t.Fatalf("FetchBuildMetadata() error = %v", err)
	}
	if meta.Result != "" || !meta.Building {
		t.Errorf("FetchBuildMetadata() = %+v, want building with empty result", meta)
	}
}

func TestProvider_FetchJobParameters(t *testing.T) {
	srv := newJenkins(t, map[string]string{
		"/job/deploy/api/json": `{"name":"deploy","builds":[],"property":[
			{"_class":"jenkins.model.BuildDiscarderProperty"},
			{"_class":"hudson.model.ParametersDefinitionProperty","parameterDefinitions":[
				{"_class":"hudson.model.StringParameterDefinition","name":"BRANCH","type":"StringParameterDefinition","description":"Git branch","defaultParameterValue":{"value":"main"}},
				{"_class":"hudson.model.ChoiceParameterDefinition","name":"ENV","type":"ChoiceParameterDefinition","defaultParameterValue":{"value":"staging"},"choices":["staging","prod"]},
				{"_class":"hudson.model.BooleanParameterDefinition","name":"DRY_RUN","type":"BooleanParameterDefinition","defaultParameterValue":{"value":true}},
				{"_class":"hudson.model.BooleanParameterDefinition","name":"FORCE","type":"BooleanParameterDefinition","defaultParameterValue":{"value":false}},
				{"_class":"org.example.CustomParameterDefinition","name":"CUSTOM"}
			]}
		]}`,
		"/job/team/job/api/api/json": `{"name":"api","builds":[],"property":[{"_class":"jenkins.model.BuildDiscarderProperty"}]}`,
	})
	p := NewProvider(provider.Credentials{BaseURL: srv.URL, Username: "admin", Token: "secret"})
	ctx := context.Background()

	params, err := p.FetchJobParameters(ctx, "deploy")
	if err != nil {
		t.Fatalf("FetchJobParameters(deploy) error = %v", err)
	}
	if !params.HasParameters || len(params.Parameters) != 5 {
		t.Fatalf("FetchJobParameters(deploy) = %+v, want 5 parameters", params)
	}

	tests := []struct {
		name        string
		wantType    string
		wantDefault string
		wantDesc    string
		wantChoices int
	}{
		{"BRANCH", "StringParameterDefinition", "main", "Git branch", 0},
		{"ENV", "ChoiceParameterDefinition", "staging", "", 2},
		{"DRY_RUN", "BooleanParameterDefinition", "true", "", 0},
		{"FORCE", "BooleanParameterDefinition", "", "", 0},
		{"CUSTOM", "org.example.CustomParameterDefinition", "", "", 0},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := params.Parameters[i]
			if got.Name != tt.name || got.Type != tt.wantType || got.DefaultValue != tt.wantDefault || got.Description != tt.wantDesc {
				t.Errorf("Parameters[%d] = %+v, want %s/%s default %q", i, got, tt.name, tt.wantType, tt.wantDefault)
			}
			if got.Choices == nil || len(got.Choices) != tt.wantChoices {
				t.Errorf("Parameters[%d].Choices = %v, want %d choices", i, got.Choices, tt.wantChoices)
			}
		})
	}

	params, err = p.FetchJobParameters(ctx, "team/api")
	if err != nil {
		t.Fatalf("FetchJobParameters(team/api) error = %v", err)
	}
	if params.HasParameters || params.Parameters == nil || len(params.Parameters) != 0 {
		t.Errorf("FetchJobParameters(team/api) = %+v, want no parameters", params)
	}

	if _, err := p.FetchJobParameters(ctx, "ghost"); !errors.Is(err, provider.ErrJobNotFound) {
		t.Errorf("FetchJobParameters(ghost) error = %v, want ErrJobNotFound", err)
	}
}
