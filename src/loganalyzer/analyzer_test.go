package loganalyzer

import (
	"strings"
	"testing"
)

const declarativeFailure = `Started by user admin
[Pipeline] Start of Pipeline
[Pipeline] node
Running on Jenkins in /var/jenkins_home/workspace/backend
[Pipeline] {
[Pipeline] stage
[Pipeline] { (Declarative: Checkout SCM)
[Pipeline] checkout
Cloning the remote Git repository
[Pipeline] }
[Pipeline] // stage
[Pipeline] stage
[Pipeline] { (Build)
[Pipeline] sh
+ make build
go build ./...
[Pipeline] }
[Pipeline] // stage
[Pipeline] stage
[Pipeline] { (Run Tests)
[Pipeline] sh
+ go test ./...
--- FAIL: TestResolve (0.00s)
FAIL
[Pipeline] }
[Pipeline] // stage
[Pipeline] stage
[Pipeline] { (Declarative: Post Actions)
[Pipeline] echo
Cleaning workspace
[Pipeline] }
[Pipeline] // stage
[Pipeline] }
[Pipeline] // node
[Pipeline] End of Pipeline
ERROR: script returned exit code 1
Finished: FAILURE
`

func TestFindFailedStage(t *testing.T) {
	tests := []struct {
		name   string
		log    string
		want   string
		wantOK bool
	}{
		{
			name:   "entering stage markers",
			log:    "Entering stage [Build]\nsome build output\nEntering stage [Test]\nERROR: test failed\n",
			want:   "Test",
			wantOK: true,
		},
		{
			name:   "entering stage without brackets",
			log:    "Entering stage Package\nscript returned exit code 2\n",
			want:   "Package",
			wantOK: true,
		},
		{
			name:   "first failure indicator wins",
			log:    "[Pipeline] { (Lint)\nERROR: lint failed\n[Pipeline] { (Deploy)\nFinished: FAILURE\n",
			want:   "Lint",
			wantOK: true,
		},
		{
			name:   "quoted stage marker",
			log:    "Stage \"Deploy\" started\njava.io.IOException: disk full\n",
			want:   "Deploy",
			wantOK: true,
		},
		{
			name:   "block marker beats quoted marker on the same line",
			log:    "[Pipeline] { (Stage 'Inner')\n[Pipeline] error\n",
			want:   "Stage 'Inner'",
			wantOK: true,
		},
		{
			name:   "synthetic post actions do not steal the failure",
			log:    declarativeFailure,
			want:   "Run Tests",
			wantOK: true,
		},
		{
			name:   "aborted build",
			log:    "[Pipeline] { (Approve)\nAborted by admin\norg.jenkinsci.plugins.workflow.steps.FlowInterruptedException\nFinished: ABORTED\n",
			want:   "Approve",
			wantOK: true,
		},
		{
			name:   "only synthetic stages",
			log:    "[Pipeline] { (Declarative: Checkout SCM)\n[Pipeline] { (Declarative: Post Actions)\nERROR: checkout failed\n",
			want:   "",
			wantOK: false,
		},
		{
			name:   "no failure indicator falls back to last real stage",
			log:    "[Pipeline] { (Build)\n[Pipeline] { (Publish)\n[Pipeline] { (Declarative: Post Actions)\nconnection reset\n",
			want:   "Publish",
			wantOK: true,
		},
		{
			name:   "failure before any stage is skipped",
			log:    "ERROR: missing credentials\n[Pipeline] { (Deploy)\nFinished: FAILURE\n",
			want:   "Deploy",
			wantOK: true,
		},
		{
			name:   "zero exit code is not a failure",
			log:    "[Pipeline] { (Build)\nscript returned exit code 0\n[Pipeline] { (Ship)\n",
			want:   "Ship",
			wantOK: true,
		},
		{
			name:   "CRLF line endings",
			log:    "Entering stage [Build]\r\nERROR: boom\r\n",
			want:   "Build",
			wantOK: true,
		},
		{
			name:   "empty log",
			log:    "",
			want:   "",
			wantOK: false,
		},
		{
			name:   "no stages at all",
			log:    "Started by timer\nFinished: FAILURE\n",
			want:   "",
			wantOK: false,
		},
		{
			name:   "skipped-stage notice after the failure keeps the failing stage",
			log:    "[Pipeline] { (Build)\n+ make\nmake: *** [all] Error 2\nscript returned exit code 2\n[Pipeline] }\nStage \"Deploy\" skipped due to earlier failure(s)\nFinished: FAILURE\n",
			want:   "Build",
			wantOK: true,
		},
		{
			// The quoted marker consumes Jenkins's own skip notice, so an
			// indicator printed after it lands on the skipped stage.
			name:   "error after skipped-stage notice lands on the skipped stage",
			log:    "[Pipeline] { (Build)\n+ make\n[Pipeline] }\nStage \"Deploy\" skipped due to earlier failure(s)\nERROR: script returned exit code 2\n",
			want:   "Deploy",
			wantOK: true,
		},
		{
			name:   "blank stage name is ignored",
			log:    "[Pipeline] { (Build)\n[Pipeline] { ( )\nERROR: failed\n",
			want:   "Build",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindFailedStage(tt.log)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FindFailedStage() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindFailingCommand(t *testing.T) {
	tests := []struct {
		name   string
		log    string
		want   string
		wantOK bool
	}{
		{
			name:   "last shell trace wins",
			log:    "[Pipeline] sh\n+ echo hello\n+ exit 1\n",
			want:   "exit 1",
			wantOK: true,
		},
		{
			name:   "nested subshell trace",
			log:    "[Pipeline] sh\n++ git rev-parse HEAD\n+ docker build -t app:abc .\nerror: failed\n",
			want:   "docker build -t app:abc .",
			wantOK: true,
		},
		{
			name:   "batch echo",
			log:    "[Pipeline] bat\n> gradlew.bat test\nBUILD FAILED\n",
			want:   "gradlew.bat test",
			wantOK: true,
		},
		{
			name:   "windows prompt echo",
			log:    "[Pipeline] bat\n\nC:\\Jenkins\\workspace\\app>msbuild App.sln\nerror MSB1009\n",
			want:   "msbuild App.sln",
			wantOK: true,
		},
		{
			name:   "dollar echo",
			log:    "$ npm ci\nnpm ERR! code ERESOLVE\n",
			want:   "npm ci",
			wantOK: true,
		},
		{
			name:   "inline sh -c invocation",
			log:    "Executing sh -c 'make integration'\nmake: *** [integration] Error 2\n",
			want:   "make integration",
			wantOK: true,
		},
		{
			name:   "running command marker",
			log:    "Running command: ./deploy.sh production\nPermission denied\n",
			want:   "./deploy.sh production",
			wantOK: true,
		},
		{
			name:   "step marker without trace falls back to next text line",
			log:    "[Pipeline] sh\n[Pipeline] // sh annotation\n\nmvn -B verify\n[ERROR] Tests run: 3, Failures: 1\n",
			want:   "mvn -B verify",
			wantOK: true,
		},
		{
			name:   "running shell script marker",
			log:    "[workspace] Running shell script\n   ./gradlew check  \nFAILURE: Build failed\n",
			want:   "./gradlew check",
			wantOK: true,
		},
		{
			name:   "latest step marker is used",
			log:    "[Pipeline] sh\nfirst step\n[Pipeline] sh\nsecond step\n",
			want:   "second step",
			wantOK: true,
		},
		{
			name:   "step marker at end of log",
			log:    "building\n[Pipeline] sh\n",
			want:   "",
			wantOK: false,
		},
		{
			name:   "no commands",
			log:    "Started by user admin\nFinished: SUCCESS\n",
			want:   "",
			wantOK: false,
		},
		{
			name:   "empty log",
			log:    "",
			want:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindFailingCommand(tt.log)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FindFailingCommand() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAnalyzerIsDeterministic(t *testing.T) {
	inputs := []string{declarativeFailure, "", "[Pipeline] sh\n+ echo hello\n+ exit 1\n"}

	for _, in := range inputs {
		s1, ok1 := FindFailedStage(in)
		s2, ok2 := FindFailedStage(in)
		if s1 != s2 || ok1 != ok2 {
			t.Errorf("FindFailedStage() not stable: (%q, %v) then (%q, %v)", s1, ok1, s2, ok2)
		}

		c1, ok1 := FindFailingCommand(in)
		c2, ok2 := FindFailingCommand(in)
		if c1 != c2 || ok1 != ok2 {
			t.Errorf("FindFailingCommand() not stable: (%q, %v) then (%q, %v)", c1, ok1, c2, ok2)
		}
	}
}

func TestAnalyzerHandlesLargeLogs(t *testing.T) {
	var b strings.Builder
	b.WriteString("[Pipeline] { (Soak)\n")
	for i := 0; i < 50000; i++ {
		b.WriteString("processing record batch\n")
	}
	b.WriteString("+ ./verify.sh\nERROR: verification failed\n")

	stage, ok := FindFailedStage(b.String())
	if !ok || stage != "Soak" {
		t.Errorf("FindFailedStage() = (%q, %v), want (\"Soak\", true)", stage, ok)
	}

	cmd, ok := FindFailingCommand(b.String())
	if !ok || cmd != "./verify.sh" {
		t.Errorf("FindFailingCommand() = (%q, %v), want (\"./verify.sh\", true)", cmd, ok)
	}
}

func TestIsSyntheticStage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Declarative: Checkout SCM", true},
		{"Declarative: Post Actions", true},
		{" Declarative: Tool Install", true},
		{"Build", false},
		{"Deploy Declarative: config", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSyntheticStage(tt.name); got != tt.want {
			t.Errorf("IsSyntheticStage(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
