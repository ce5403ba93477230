package catalog

import "github.com/quickproject/qpc/pkg/models"

// categories is the authoritative catalog. Identifiers are unique within
// their parent list.
var categories = []models.Category{
	{
		ID:    "frontend",
		Label: "Frontend Frameworks and Libraries",
		Children: []models.ScaffoldDefinition{
			{ID: "react-js", Label: "React (JavaScript)", Icon: "react",
				Command: "npx create-react-app ."},
			{ID: "react-ts", Label: "React (TypeScript)", Icon: "react",
				Command: "npx create-react-app . --template typescript"},
			{ID: "vue-js", Label: "Vue.js (JavaScript)", Icon: "symbol-misc",
				Command: "npm init vue@latest ."},
			{ID: "vue-ts", Label: "Vue.js (TypeScript)", Icon: "symbol-misc",
				Command: "npm init vue@latest . -- --typescript"},
			{ID: "angular", Label: "Angular", Icon: "circuit-board",
				Command: "npx @angular/cli new temp-project --directory ./ && mv temp-project/* . && mv temp-project/.* . && rmdir temp-project"},
			{ID: "svelte", Label: "Svelte", Icon: "symbol-event",
				Command: "npx degit sveltejs/template ."},
			{ID: "preact", Label: "Preact", Icon: "symbol-color",
				Command: "npx preact-cli create default ."},
			{ID: "solidjs", Label: "Solid.js", Icon: "symbol-namespace",
				Command: "npx degit solidjs/templates/js ."},
			{ID: "alpinejs", Label: "Alpine.js", Icon: "symbol-method",
				Command: "npm init -y && npm install alpinejs"},
			{ID: "lit", Label: "Lit", Icon: "symbol-enum",
				Command: "npm init @lit/app@latest ."},
		},
	},
	{
		ID:    "backend",
		Label: "Backend Frameworks",
		Children: []models.ScaffoldDefinition{
			{ID: "express", Label: "Express.js (Node.js)", Icon: "server",
				Command: "npx express-generator ."},
			{ID: "nestjs", Label: "Nest.js (Node.js)", Icon: "server-process",
				Command: "npx @nestjs/cli new . --directory ./"},
			{ID: "koa", Label: "Koa.js (Node.js)", Icon: "server-environment",
				Command: "npm init -y && npm install koa && npm install koa-router"},
			{ID: "fastify", Label: "Fastify (Node.js)", Icon: "rocket",
				Command: "npm init fastify ."},
			{ID: "django", Label: "Django (Python)", Icon: "symbol-namespace",
				Command: "django-admin startproject config . && python manage.py startapp main"},
			{ID: "flask", Label: "Flask (Python)", Icon: "beaker",
				Command: "pip install flask && echo \"from flask import Flask\\n\\napp = Flask(__name__)\\n\\n@app.route('/')\\ndef hello():\\n    return 'Hello, World!'\\n\\nif __name__ == '__main__':\\n    app.run(debug=True)\" > app.py"},
			{ID: "fastapi", Label: "FastAPI (Python)", Icon: "zap",
				Command: "pip install fastapi[all] && echo \"from fastapi import FastAPI\\n\\napp = FastAPI()\\n\\n@app.get('/')\\ndef read_root():\\n    return {'Hello': 'World'}\\n\\nif __name__ == '__main__':\\n    import uvicorn\\n    uvicorn.run(app, host='0.0.0.0', port=8000)\" > main.py"},
			{ID: "spring-boot", Label: "Spring Boot (Java)", Icon: "symbol-class",
				Command: "mvn archetype:generate -DgroupId=com.example -DartifactId=. -DarchetypeArtifactId=maven-archetype-quickstart -DarchetypeVersion=1.4 -DinteractiveMode=false && mvn io.spring.javaformat:spring-javaformat-maven-plugin:apply"},
			{ID: "dotnet", Label: ".NET (C#)", Icon: "symbol-structure",
				Command: "dotnet new webapi -o ."},
			{ID: "ruby-on-rails", Label: "Ruby on Rails", Icon: "ruby",
				Command: "rails new . --database=postgresql"},
		},
	},
	{
		ID:    "fullstack",
		Label: "Full-Stack Frameworks",
		Children: []models.ScaffoldDefinition{
			{ID: "nextjs", Label: "Next.js", Icon: "server-process",
				Command: "npx create-next-app@latest ."},
			{ID: "nuxtjs", Label: "Nuxt.js", Icon: "server-process",
				Command: "npx create-nuxt-app ."},
			{ID: "sveltekit", Label: "SvelteKit", Icon: "server-process",
				Command: "npm create svelte@latest ."},
			{ID: "remix", Label: "Remix", Icon: "server-process",
				Command: "npx create-remix@latest ."},
			{ID: "redwood", Label: "RedwoodJS", Icon: "symbol-misc",
				Command: "yarn create redwood-app ."},
			{ID: "blitz", Label: "Blitz.js", Icon: "rocket",
				Command: "npx blitz new ."},
		},
	},
	{
		ID:    "mobile",
		Label: "Mobile App Development",
		Children: []models.ScaffoldDefinition{
			{ID: "react-native", Label: "React Native", Icon: "device-mobile",
				Command: "npx react-native init ."},
			{ID: "flutter", Label: "Flutter", Icon: "device-mobile",
				Command: "flutter create ."},
			{ID: "ionic-angular", Label: "Ionic (Angular)", Icon: "device-mobile",
				Command: "ionic start . blank --type=angular --capacitor"},
			{ID: "ionic-react", Label: "Ionic (React)", Icon: "device-mobile",
				Command: "ionic start . blank --type=react --capacitor"},
			{ID: "xamarin", Label: "Xamarin", Icon: "device-mobile",
				Command: "dotnet new xamarin-forms -o ."},
		},
	},
	{
		ID:    "static-site-generators",
		Label: "Static Site Generators",
		Children: []models.ScaffoldDefinition{
			{ID: "gatsby", Label: "Gatsby", Icon: "symbol-misc",
				Command: "npx gatsby new ."},
			{ID: "hugo", Label: "Hugo", Icon: "symbol-misc",
				Command: "hugo new site . --force"},
			{ID: "jekyll", Label: "Jekyll", Icon: "symbol-misc",
				Command: "jekyll new . --force"},
			{ID: "eleventy", Label: "Eleventy (11ty)", Icon: "symbol-misc",
				Command: "npm init -y && npm install @11ty/eleventy && echo \"module.exports = function(eleventyConfig) { return { dir: { input: 'src', output: 'dist' } }; };\" > .eleventy.js && mkdir src"},
		},
	},
	{
		ID:    "desktop",
		Label: "Desktop App Development",
		Children: []models.ScaffoldDefinition{
			{ID: "electron", Label: "Electron", Icon: "desktop-download",
				Command: "npx create-electron-app ."},
			{ID: "tauri", Label: "Tauri", Icon: "desktop-download",
				Command: "npm init tauri-app ."},
		},
	},
	{
		ID:    "api-development",
		Label: "API Development",
		Children: []models.ScaffoldDefinition{
			{ID: "graphql-apollo", Label: "GraphQL (Apollo Server)", Icon: "symbol-interface",
				Command: "npm init -y && npm install apollo-server graphql && echo \"const { ApolloServer, gql } = require('apollo-server');\\n\\nconst typeDefs = gql`\\n  type Query {\\n    hello: String\\n  }\\n`;\\n\\nconst resolvers = {\\n  Query: {\\n    hello: () => 'Hello world!',\\n  },\\n};\\n\\nconst server = new ApolloServer({ typeDefs, resolvers });\\n\\nserver.listen().then(({ url }) => {\\n  console.log(`🚀  Server ready at ${url}`);\\n});\" > server.js"},
			{ID: "grpc", Label: "gRPC (Node.js)", Icon: "symbol-method",
				Command: "npm init -y && npm install @grpc/grpc-js @grpc/proto-loader && mkdir proto && echo \"syntax = 'proto3';\\n\\npackage example;\\n\\nservice ExampleService {\\n  rpc SayHello (HelloRequest) returns (HelloReply) {}\\n}\\n\\nmessage HelloRequest {\\n  string name = 1;\\n}\\n\\nmessage HelloReply {\\n  string message = 1;\\n}\" > proto/example.proto"},
		},
	},
}
